// sentryctl - control client for the sentryd daemon
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
	"sentryd/internal/config"
	"sentryd/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ping":
		cmdPing()
	case "status":
		cmdStatus()
	case "score":
		cmdScore()
	case "history":
		cmdHistory()
	case "posture":
		cmdPosture()
	case "reset-posture":
		cmdResetPosture()
	case "refit":
		cmdRefit()
	case "shutdown":
		cmdShutdown()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`sentryctl - control client for the sentryd daemon

USAGE:
    sentryctl <command> [options]

COMMANDS:
    ping           Check that the daemon is responding
    status         Show daemon status and posture
    score          Score a sample: sentryctl score -typing 4.5 -mouse 320
    history        Show recent threat verdicts
    posture        Show the security posture score
    reset-posture  Restore the posture score to its starting value
    refit          Re-train the detectors on a fresh corpus
    shutdown       Stop the daemon
    help           Show this help message

Options common to every command:
    -socket PATH   Daemon control socket (default from config)
    -json          Print raw JSON instead of formatted text`)
}

// dial parses common flags, then connects to the daemon.
func dial(fs *flag.FlagSet, args []string) (*ipc.Client, bool) {
	socketPath := fs.String("socket", "", "daemon control socket path")
	asJSON := fs.Bool("json", false, "print raw JSON")
	fs.Parse(args)

	path := *socketPath
	if path == "" {
		path = config.DefaultConfig().IPC.SocketPath
	}

	client, err := ipc.Dial(path)
	if err != nil {
		fatal("connect to %s: %v (is sentryd running?)", path, err)
	}
	return client, *asJSON
}

func cmdPing() {
	client, _ := dial(flag.NewFlagSet("ping", flag.ExitOnError), os.Args[2:])
	defer client.Close()

	start := time.Now()
	if err := client.Ping(); err != nil {
		fatal("ping: %v", err)
	}
	fmt.Printf("pong (%s)\n", time.Since(start).Round(time.Microsecond))
}

func cmdStatus() {
	client, asJSON := dial(flag.NewFlagSet("status", flag.ExitOnError), os.Args[2:])
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fatal("status: %v", err)
	}
	if asJSON {
		printJSON(status)
		return
	}

	fmt.Println("sentryd", status.Version)
	fmt.Printf("  Uptime:   %s\n", status.Uptime.Round(time.Second))
	if status.Fitted {
		fmt.Printf("  Models:   fitted at %s (corpus %d)\n",
			status.FittedAt.Format(time.RFC3339), status.CorpusSize)
	} else {
		fmt.Println("  Models:   not fitted")
	}
	fmt.Printf("  Posture:  %d (%s)\n", status.Posture, status.Status)
	fmt.Printf("  Threats:  %d recorded, %d suspicious\n",
		status.Stats.Total, status.Stats.Suspicious)
}

func cmdScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	typing := fs.Float64("typing", 0, "typing speed in keystrokes/sec")
	mouse := fs.Float64("mouse", 0, "mouse speed in pixels/sec")
	client, asJSON := dial(fs, os.Args[2:])
	defer client.Close()

	resp, err := client.Score(behavior.FeatureSample{TypingSpeed: *typing, MouseSpeed: *mouse})
	if err != nil {
		fatal("score: %v", err)
	}
	if asJSON {
		printJSON(resp)
		return
	}

	v := resp.Verdict
	fmt.Printf("Threat Level: %s (%s)\n", v.Severity, v.Pattern)
	fmt.Printf("Typing:       %.2f k/s (%s)\n", v.Sample.TypingSpeed, v.TypingCategory.Describe())
	fmt.Printf("Mouse:        %.2f px/s (%s)\n", v.Sample.MouseSpeed, v.MouseCategory.Describe())
	fmt.Printf("Consistency:  %s\n", v.Consistency)
	fmt.Printf("Forest:       %s (%.1f%% confidence)\n", v.Forest.Label, v.Forest.Confidence)
	fmt.Printf("Boundary:     %s (%.1f%% confidence)\n", v.Boundary.Label, v.Boundary.Confidence)
	fmt.Printf("Posture:      %d\n", resp.Posture)
	fmt.Printf("\n%s\n\nRecommended Actions:\n", v.Analysis)
	for i, action := range v.Actions {
		fmt.Printf("  %d. %s\n", i+1, action)
	}
}

func cmdHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 0, "maximum entries to show (0 = all retained)")
	client, asJSON := dial(fs, os.Args[2:])
	defer client.Close()

	verdicts, err := client.History(*limit)
	if err != nil {
		fatal("history: %v", err)
	}
	if asJSON {
		printJSON(verdicts)
		return
	}
	if len(verdicts) == 0 {
		fmt.Println("No verdicts recorded.")
		return
	}

	fmt.Printf("%-25s %-10s %-24s %8s %8s\n", "TIME", "SEVERITY", "PATTERN", "TYPING", "MOUSE")
	for _, v := range verdicts {
		fmt.Printf("%-25s %-10s %-24s %8.2f %8.1f\n",
			v.At.Format(time.RFC3339), v.Severity, v.Pattern,
			v.Sample.TypingSpeed, v.Sample.MouseSpeed)
	}
	fmt.Printf("\n%d entries (%d suspicious)\n", len(verdicts), countSuspicious(verdicts))
}

func countSuspicious(verdicts []classifier.ThreatVerdict) int {
	n := 0
	for _, v := range verdicts {
		if v.Suspicious() {
			n++
		}
	}
	return n
}

func cmdPosture() {
	client, asJSON := dial(flag.NewFlagSet("posture", flag.ExitOnError), os.Args[2:])
	defer client.Close()

	resp, err := client.Posture()
	if err != nil {
		fatal("posture: %v", err)
	}
	if asJSON {
		printJSON(resp)
		return
	}
	fmt.Printf("Posture: %d (%s)\n", resp.Posture, resp.Status)
}

func cmdResetPosture() {
	client, asJSON := dial(flag.NewFlagSet("reset-posture", flag.ExitOnError), os.Args[2:])
	defer client.Close()

	resp, err := client.ResetPosture()
	if err != nil {
		fatal("reset-posture: %v", err)
	}
	if asJSON {
		printJSON(resp)
		return
	}
	fmt.Printf("Posture reset to %d (%s)\n", resp.Posture, resp.Status)
}

func cmdRefit() {
	fs := flag.NewFlagSet("refit", flag.ExitOnError)
	normal := fs.Int("normal", 0, "normal sample count (0 = daemon default)")
	suspicious := fs.Int("suspicious", 0, "suspicious sample count (0 = daemon default)")
	seed := fs.Int64("seed", 0, "corpus generator seed (0 = daemon default)")
	client, asJSON := dial(fs, os.Args[2:])
	defer client.Close()

	resp, err := client.Refit(ipc.RefitRequest{
		NormalCount:     *normal,
		SuspiciousCount: *suspicious,
		Seed:            *seed,
	})
	if err != nil {
		fatal("refit: %v", err)
	}
	if asJSON {
		printJSON(resp)
		return
	}
	fmt.Printf("Re-fitted on %d samples at %s\n", resp.CorpusSize, resp.FittedAt.Format(time.RFC3339))
}

func cmdShutdown() {
	client, _ := dial(flag.NewFlagSet("shutdown", flag.ExitOnError), os.Args[2:])
	defer client.Close()

	if err := client.Shutdown(); err != nil {
		fatal("shutdown: %v", err)
	}
	fmt.Println("Daemon shutting down.")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sentryctl: "+format+"\n", args...)
	os.Exit(1)
}
