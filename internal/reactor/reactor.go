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

// Package reactor is the concurrent I/O engine: a pool of independent
// listeners, each bound to the same port via SO_REUSEPORT so the kernel
// load-balances accepted connections across them, replacing the original's
// one io_context-per-OS-thread model (spec §5). Each reactor runs its own
// accept loop; sessions it accepts run as ordinary goroutines rather than
// being confined to the reactor's own OS thread, since Go's scheduler makes
// that confinement both unenforceable and pointless (see SPEC_FULL.md §9).
package reactor

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/kelindar/lobos/internal/gateway"
	"github.com/kelindar/lobos/internal/objectfs"
)

// maxObjectSize is the body size cap (spec §5), matching ext4's maximum
// file size and the original's MAX_OBJ_SIZE.
const maxObjectSize = 16 << 40

// idleTimeout bounds how long a session may wait for the next request's
// headers before the connection is dropped (spec §5).
const idleTimeout = 30 * time.Second

// Pool owns a set of reactors bound to the same address.
type Pool struct {
	Addr       string
	Count      int
	Pin        bool
	Dispatcher *gateway.Dispatcher
	Store      *objectfs.Store
}

// New returns a Pool of count reactors serving dispatcher on addr.
func New(addr string, count int, pin bool, dispatcher *gateway.Dispatcher, store *objectfs.Store) *Pool {
	return &Pool{Addr: addr, Count: count, Pin: pin, Dispatcher: dispatcher, Store: store}
}

// Run starts every reactor and blocks until ctx is canceled or one of them
// fails to bind its listener, matching the original's start(threads, pin)
// joining its thread pool. The reactors are fanned out with an errgroup so
// that one reactor failing to bind cancels the rest instead of leaving them
// running orphaned.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.Count; i++ {
		id := i
		g.Go(func() error {
			return p.runReactor(gctx, id)
		})
	}
	return g.Wait()
}

// runReactor pins the calling goroutine's OS thread (if requested) and
// opens one SO_REUSEPORT listener, then loops accepting connections.
func (p *Pool) runReactor(ctx context.Context, id int) error {
	if p.Pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinToCPU(id); err != nil {
			log.Error.Printf("reactor %d: cpu pin failed: %v", id, err)
		}
	}

	lc := net.ListenConfig{Control: reusePortControl}
	ln, err := lc.Listen(ctx, "tcp", p.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Error.Printf("reactor %d: accept: %v", id, err)
				return err
			}
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		go p.session(conn)
	}
}

// reusePortControl sets SO_REUSEADDR and SO_REUSEPORT on the listening
// socket so every reactor can bind the same address and let the kernel
// distribute accepted connections across them.
func reusePortControl(_, _ string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			ctrlErr = e
			return
		}
		ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}

// pinToCPU binds the calling OS thread to a single CPU core, the Go
// equivalent of pthread_setaffinity_np in the original.
func pinToCPU(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}

// session runs one connection's request/response loop: read headers,
// stream a PUT body straight to disk, dispatch, write the response, and
// repeat while the client keeps the connection alive (spec §5).
func (p *Pool) session(conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	for {
		conn.SetDeadline(time.Now().Add(idleTimeout))

		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}

		gwReq := gateway.Request{
			Method:    req.Method,
			Target:    req.RequestURI,
			KeepAlive: !req.Close,
		}

		if req.Method == http.MethodPut {
			key, putFile, err := p.openPutDestination(req.RequestURI)
			if err != nil {
				// The destination can't be opened (e.g. a path component
				// collides with an existing file). The client's body bytes
				// are never drained, so the connection can't be reused for
				// a further request on it; always close after responding.
				writeBadRequest(conn, req, "unsupported req")
				if req.Body != nil {
					req.Body.Close()
				}
				return
			}
			gwReq.PutFile = putFile
			gwReq.PutKey = key

			body := io.LimitReader(req.Body, maxObjectSize)
			if _, err := io.Copy(putFile, body); err != nil {
				log.Error.Printf("session: put copy: %v", err)
				putFile.Close()
				req.Body.Close()
				return
			}
			putFile.Sync()
		}

		if req.Body != nil {
			req.Body.Close()
		}

		resp := p.Dispatcher.Dispatch(gwReq)
		if gwReq.PutFile != nil {
			gwReq.PutFile.Close()
		}

		if err := writeResponse(conn, req, resp); err != nil {
			return
		}

		if resp.Body != nil {
			resp.Body.Close()
		}

		if !resp.KeepAlive {
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.CloseWrite()
			}
			return
		}
	}
}

// openPutDestination normalizes the PUT target into a key, creates any
// missing parent directories, and opens the destination file for writing,
// mirroring create_dest_dirs_if_not_exist in the original.
func (p *Pool) openPutDestination(rawTarget string) (string, *os.File, error) {
	key, _, err := gateway.Normalize(rawTarget, p.bucket())
	if err != nil {
		return "", nil, err
	}
	if err := p.Store.EnsureParentDirs(key); err != nil {
		return "", nil, err
	}
	f, err := p.Store.Create(key)
	if err != nil {
		return "", nil, err
	}
	return key, f, nil
}

func (p *Pool) bucket() string {
	return p.Dispatcher.Bucket
}

func writeBadRequest(conn net.Conn, req *http.Request, msg string) {
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(msg)),
		Request:    req,
	}
	resp.Write(conn)
}

func writeResponse(conn net.Conn, req *http.Request, r gateway.Response) error {
	header := r.Header
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Server", "LOBOS BB")

	resp := &http.Response{
		StatusCode:    r.Status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          r.Body,
		ContentLength: r.ContentSize,
		Close:         !r.KeepAlive,
		Request:       req,
	}
	if resp.Body == nil {
		resp.Body = io.NopCloser(strings.NewReader(""))
	}
	return resp.Write(conn)
}
