// Copyright 2025 Roman Atachiants
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package config parses and validates the command-line arguments that
// bootstrap a lobos server. It is the "argument parser / process bootstrap"
// collaborator referenced by the gateway: everything downstream consumes a
// validated Config and never touches flags directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
)

// Config holds the fully validated, immutable server configuration.
type Config struct {
	// Dir is the absolute bucket-root directory, always ending in "/".
	Dir string
	// Bucket is the last non-empty path component of Dir.
	Bucket string
	// Port is the TCP port the reactors bind to on 127.0.0.1.
	Port int
	// Reactors is the number of independent accept-loop goroutines.
	Reactors int
	// PinReactors pins reactor i to CPU i when true.
	PinReactors bool
	// IndexEnabled builds and serves listings from the in-memory index.
	IndexEnabled bool
	// IndexRefreshSec, when positive and IndexEnabled is set, is the
	// interval in seconds at which cmd/lobos rebuilds the index from the
	// filesystem. Zero disables the periodic rebuild.
	IndexRefreshSec int
}

// ErrInvalidDir is returned (wrapped) when --dir is missing, not a
// directory, or inaccessible. Its presence signals the EINVAL exit code
// spec.md §6 requires of the CLI.
var ErrInvalidDir = errors.New("invalid --dir")

// Parse parses args (excluding the program name, i.e. os.Args[1:]) into a
// Config. help is true when -h/--help was requested, in which case usage
// has already been written to out and the caller should exit 0 without
// looking at cfg or err.
func Parse(args []string, out *os.File) (cfg Config, help bool, err error) {
	fs := flag.NewFlagSet("lobos", flag.ContinueOnError)
	fs.SetOutput(out)

	dir := fs.StringP("dir", "d", "", "directory for lobos to transform into a S3 bucket")
	port := fs.IntP("port", "p", 8080, "port the HTTP server should listen on")
	threads := fs.IntP("threads", "t", 8, "number of reactor threads to use")
	pin := fs.BoolP("pin-threads-to-cpus", "c", false, "pin reactor i to CPU i")
	enableIndex := fs.BoolP("enable-lobos-index", "e", false, "enable the in-memory lobos index")
	refresh := fs.IntP("lobos-index-refresh-sec", "r", 0, "index refresh interval in seconds (0 disables refresh)")
	fs.BoolP("help", "h", false, "show this help and exit")

	fs.Usage = func() {
		fmt.Fprint(out, usage)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, true, nil
		}
		return Config{}, false, err
	}

	if h, _ := fs.GetBool("help"); h {
		fs.Usage()
		return Config{}, true, nil
	}

	resolvedDir, err := validateDir(*dir)
	if err != nil {
		return Config{}, false, err
	}

	cfg = Config{
		Dir:             resolvedDir,
		Bucket:          bucketName(resolvedDir),
		Port:            *port,
		Reactors:        *threads,
		PinReactors:     *pin,
		IndexEnabled:    *enableIndex,
		IndexRefreshSec: *refresh,
	}
	return cfg, false, nil
}

const usage = `Usage:
  lobos [options]

Options:
  -h, --help
      Show this help and exit
  -d, --dir
      Directory for lobos to transform into a S3 bucket
  -p, --port
      Port to the HTTP server should listen on (default 8080)
  -t, --threads
      Number of threads to use. Too many threads will have a
      detrimental impact on perf. (default: 8)
  -c, --pin-threads-to-cpus
      Pin threads to CPU. Thread 0 will be pinned to CPU#0, etc. (Default: false)
  -e, --enable-lobos-index
      (In development) Enable Lobos index
  -r, --lobos-index-refresh-sec <sec>
      Refresh interval in seconds (default: 0, no refresh)
      When the index is enabled, this will re-sync the index while lobos is running to keep
      up with any changes made by other applications
`

// validateDir resolves --dir, preserving the original's quirks: a bare "."
// expands to the *parent* of the current working directory (not the
// current directory itself), and the result always ends in a trailing "/".
func validateDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%w: must specify --dir/-d", ErrInvalidDir)
	}

	info, statErr := os.Stat(dir)
	if statErr != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidDir, statErr)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidDir, dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidDir, err)
	}
	if dir == "." {
		abs = filepath.Dir(abs)
	}
	dir = abs

	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir, nil
}

// bucketName returns the last non-empty path component of dir.
func bucketName(dir string) string {
	trimmed := strings.TrimSuffix(dir, "/")
	return filepath.Base(trimmed)
}
