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

// Command lobos exposes a local directory as a read/write bucket over a
// subset of the S3 REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/grailbio/base/log"

	"github.com/kelindar/lobos/internal/config"
	"github.com/kelindar/lobos/internal/gateway"
	"github.com/kelindar/lobos/internal/index"
	"github.com/kelindar/lobos/internal/objectfs"
	"github.com/kelindar/lobos/internal/reactor"
)

func main() {
	cfg, help, err := config.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, config.ErrInvalidDir) {
			os.Exit(int(syscall.EINVAL))
		}
		os.Exit(1)
	}
	if help {
		return
	}

	log.Print("====== OPTIONS ======== ")
	log.Printf("port=%d", cfg.Port)
	log.Printf("lobos_dir=%s", cfg.Dir)
	log.Printf("lobos_index_enabled=%t", cfg.IndexEnabled)
	log.Printf("lobos_index_refresh_sec=%d", cfg.IndexRefreshSec)
	log.Printf("reactors=%d", cfg.Reactors)
	log.Printf("thread pinning=%t", cfg.PinReactors)
	log.Print("======================= ")

	var idx *index.Index
	if cfg.IndexEnabled {
		log.Printf("Recursively building index from %s down... This can take a while", cfg.Dir)
		start := time.Now()
		idx, err = index.BuildFromFS(cfg.Dir)
		if err != nil {
			log.Fatalf("failed to build index: %v", err)
		}
		log.Printf("Index built in %v with %d items", time.Since(start), idx.Len())

		if cfg.IndexRefreshSec > 0 {
			go refreshIndex(cfg.Dir, idx, time.Duration(cfg.IndexRefreshSec)*time.Second)
		}
	}

	store := objectfs.New(cfg.Dir, idx)
	dispatcher := gateway.New(cfg.Bucket, store)
	pool := reactor.New("127.0.0.1:"+strconv.Itoa(cfg.Port), cfg.Reactors, cfg.PinReactors, dispatcher, store)

	log.Printf("Starting S3 HTTP server for bucket %s at 127.0.0.1:%d", cfg.Bucket, cfg.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := pool.Run(ctx); err != nil {
		log.Fatalf("reactor pool exited: %v", err)
	}
}

// refreshIndex periodically rebuilds the index from the filesystem, the Go
// counterpart of the "(Not implemented)" --lobos-index-refresh-sec option
// in the original: the original never implemented it, this does.
func refreshIndex(dir string, idx *index.Index, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		fresh, err := index.BuildFromFS(dir)
		if err != nil {
			log.Error.Printf("index refresh failed: %v", err)
			continue
		}
		idx.Replace(fresh)
	}
}
