// Command wxdecode renders METAR and TAF reports as Chinese display rows.
//
//	wxdecode [-kind metar|taf] [-json] "METAR VHHH 210800Z 24012KT ..."
//	echo "TAF VHHH ..." | wxdecode
//	wxdecode -fetch -station VHHH -kind taf
//
// Without -kind the report header decides. Reports read from stdin are
// decoded one per line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vaahk/wxdecode/internal/decoder"
	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

type output struct {
	Kind    decoder.Kind           `json:"kind"`
	Raw     string                 `json:"raw"`
	Decoded []decoder.DecodedToken `json:"decoded"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wxdecode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kindFlag := fs.String("kind", "", "Report kind: metar or taf (default: detect from header)")
	asJSON := fs.Bool("json", false, "Emit decoded rows as JSON")
	fetch := fs.Bool("fetch", false, "Fetch the live report instead of reading one")
	station := fs.String("station", "VHHH", "ICAO station for -fetch")
	apiBase := fs.String("api", weather.DefaultWeatherConfig().APIBaseURL, "Weather API base URL for -fetch")
	timeout := fs.Duration("timeout", 15*time.Second, "Timeout for -fetch")
	verbose := fs.Bool("v", false, "Log fetch progress to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var kind decoder.Kind
	if *kindFlag != "" {
		k, err := decoder.ParseKind(*kindFlag)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid -kind: %v\n", err)
			return 2
		}
		kind = k
	}

	var reports []string
	switch {
	case *fetch:
		if kind == "" {
			kind = decoder.KindMETAR
		}
		raw, err := fetchReport(*apiBase, *station, kind, *timeout, *verbose, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Fetch failed: %v\n", err)
			return 1
		}
		reports = []string{raw}
	case fs.NArg() > 0:
		reports = []string{strings.Join(fs.Args(), " ")}
	default:
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				reports = append(reports, line)
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(stderr, "Failed to read stdin: %v\n", err)
			return 1
		}
	}

	if len(reports) == 0 {
		fmt.Fprintln(stderr, "No report given")
		return 2
	}

	dec := decoder.New(nil)
	outs := make([]output, 0, len(reports))
	for _, raw := range reports {
		k := kind
		if k == "" {
			k = decoder.DetectKind(raw)
		}
		outs = append(outs, output{Kind: k, Raw: raw, Decoded: dec.Decode(k, raw)})
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		var v any = outs
		if len(outs) == 1 {
			v = outs[0]
		}
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(stderr, "Failed to encode: %v\n", err)
			return 1
		}
		return 0
	}

	for i, o := range outs {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintln(stdout, decoder.Format(o.Decoded))
	}
	return 0
}

func fetchReport(apiBase, station string, kind decoder.Kind, timeout time.Duration, verbose bool, stderr io.Writer) (string, error) {
	log := logger.NewNop()
	if verbose {
		l, err := logger.New(logger.Config{Level: "debug", Format: "console", Output: stderr})
		if err != nil {
			return "", err
		}
		log = l
	}

	cfg := weather.DefaultWeatherConfig()
	cfg.APIBaseURL = apiBase
	cfg.RequestTimeoutSeconds = max(1, int(timeout.Seconds()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return weather.NewClient(cfg, log).GetReport(ctx, strings.ToUpper(station), kind)
}
