package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "scan":
		scanCmd := flag.NewFlagSet("scan", flag.ExitOnError)
		refs := scanCmd.String("refs", "./songs", "reference songs folder")
		out := scanCmd.String("out", "./output", "output directory for reports")
		minSilence := scanCmd.Int("min-silence", 2000, "minimum silence length (ms)")
		keep := scanCmd.Int("keep", 200, "silence kept around segments (ms)")
		thresh := scanCmd.Float64("thresh", 0, "silence threshold in dBFS (default: auto)")
		window := scanCmd.Int("window", 0, "fixed analysis window in seconds instead of silence splitting")
		scanCmd.Parse(os.Args[2:])
		if scanCmd.NArg() < 1 {
			fmt.Println("usage: setfinder scan [flags] <folder>")
			os.Exit(1)
		}
		scan(scanCmd.Arg(0), scanOptions{
			refsDir:      *refs,
			outDir:       *out,
			minSilenceMs: *minSilence,
			keepMs:       *keep,
			threshDB:     *thresh,
			threshSet:    flagWasSet(scanCmd, "thresh"),
			windowSec:    *window,
		})

	case "process":
		procCmd := flag.NewFlagSet("process", flag.ExitOnError)
		mode := procCmd.String("mode", "split", "processing mode (split or trim)")
		out := procCmd.String("out", ".", "output directory")
		minSilence := procCmd.Int("min-silence", 1000, "minimum silence length (ms)")
		keep := procCmd.Int("keep", 200, "silence kept around segments (ms)")
		thresh := procCmd.Float64("thresh", 0, "silence threshold in dBFS (default: auto)")
		procCmd.Parse(os.Args[2:])
		if procCmd.NArg() < 1 {
			fmt.Println("usage: setfinder process [flags] <audio_file>")
			os.Exit(1)
		}
		processFile(procCmd.Arg(0), *mode, scanOptions{
			outDir:       *out,
			minSilenceMs: *minSilence,
			keepMs:       *keep,
			threshDB:     *thresh,
			threshSet:    flagWasSet(procCmd, "thresh"),
		})

	case "threshold":
		if len(os.Args) < 3 {
			fmt.Println("usage: setfinder threshold <audio_file>")
			os.Exit(1)
		}
		thresholdCmd(os.Args[2])

	case "refs":
		if len(os.Args) < 3 {
			fmt.Println("usage: setfinder refs <folder>")
			os.Exit(1)
		}
		refsCmd(os.Args[2])

	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		port := serveCmd.String("p", "5000", "port to use")
		refs := serveCmd.String("refs", "./songs", "reference songs folder")
		minSilence := serveCmd.Int("min-silence", 2000, "minimum silence length (ms)")
		keep := serveCmd.Int("keep", 200, "silence kept around segments (ms)")
		serveCmd.Parse(os.Args[2:])
		serve(*port, scanOptions{
			refsDir:      *refs,
			minSilenceMs: *minSilence,
			keepMs:       *keep,
		})

	default:
		printUsage()
		os.Exit(1)
	}
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func printUsage() {
	fmt.Println("usage: setfinder <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  scan      [flags] <folder>      segment and identify every recording in a folder")
	fmt.Println("  process   [flags] <audio_file>  split or trim one recording by silence")
	fmt.Println("  threshold <audio_file>          print the recommended silence threshold")
	fmt.Println("  refs      <folder>              build and list reference signatures")
	fmt.Println("  serve     [-p 5000]             start the web API")
}
