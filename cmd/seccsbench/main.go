// Command seccsbench exercises the façade (or, with -no-refcount, the
// raw node store) against a Badger-backed disk and reports throughput.
// It is a benchmarking aid, not part of the tested core contract.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/disk"

	seccs "github.com/i5heu/sec-cs"
	"github.com/i5heu/sec-cs/backend/badgerkv"
	"github.com/i5heu/sec-cs/pkg/chunker"
	"github.com/i5heu/sec-cs/pkg/cryptwrap"
	"github.com/i5heu/sec-cs/pkg/masterkey"
	"github.com/i5heu/sec-cs/pkg/nodestore"
)

func main() {
	dataDir := flag.String("datadir", "", "benchmark data directory (default: a temp dir under os.TempDir)")
	chunkSize := flag.Int("chunksize", 4096, "average chunk size in bytes")
	totalSize := flag.Int("size", 64*1024*1024, "total random bytes to push through the benchmark")
	noRefcount := flag.Bool("no-refcount", false, "measure raw node-store insert/release throughput with reference counting disabled, bypassing the tree builder")
	flag.Parse()

	dir := *dataDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "seccsbench-*")
		if err != nil {
			fail("creating temp data dir: %v", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fail("creating data dir %q: %v", dir, err)
	}

	reportFreeSpace(dir)

	backend, err := badgerkv.Open(filepath.Join(dir, "nodes"))
	if err != nil {
		fail("opening backend: %v", err)
	}
	defer backend.Close()

	mk, err := masterkey.Load(dir)
	if err != nil {
		fail("loading master key: %v", err)
	}

	data := randomBytes(*totalSize)

	if *noRefcount {
		benchmarkNodeStore(backend, mk, *chunkSize, data)
		return
	}
	benchmarkFacade(backend, mk, *chunkSize, data)
}

func benchmarkFacade(backend *badgerkv.Store, mk *masterkey.MasterKey, chunkSize int, data []byte) {
	store, err := seccs.New(seccs.Config{ChunkSize: chunkSize, MasterKey: mk.Bytes()}, backend)
	if err != nil {
		fail("constructing store: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	h, err := store.PutContent(ctx, data)
	if err != nil {
		fail("put: %v", err)
	}
	putElapsed := time.Since(start)
	report("put", len(data), putElapsed)

	start = time.Now()
	got, err := store.GetContent(ctx, h)
	if err != nil {
		fail("get: %v", err)
	}
	getElapsed := time.Since(start)
	report("get", len(got), getElapsed)

	if !bytes.Equal(data, got) {
		fail("round trip mismatch: retrieved content differs from what was stored")
	}
}

// benchmarkNodeStore measures how fast raw chunks can be inserted and
// released, with reference counting disabled so every release is
// destructive and every insert skips the existence probe. It uses
// pkg/chunker directly rather than going through a tree, since the
// point here is to isolate node-store + backend overhead from tree
// construction.
func benchmarkNodeStore(backend *badgerkv.Store, mk *masterkey.MasterKey, chunkSize int, data []byte) {
	wrapper, err := cryptwrap.NewHMACAESCTR(mk.Bytes())
	if err != nil {
		fail("deriving wrapper: %v", err)
	}
	store := nodestore.New(backend, wrapper, nodestore.WithReferenceCountingDisabled())

	splitter := chunker.New(bytes.NewReader(data), chunkSize)
	var digests []cryptwrap.Digest

	ctx := context.Background()
	start := time.Now()
	count := 0
	for {
		chunk, err := splitter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fail("splitting: %v", err)
		}
		digest, _, err := store.Insert(ctx, chunk)
		if err != nil {
			fail("insert: %v", err)
		}
		digests = append(digests, digest)
		count++
	}
	insertElapsed := time.Since(start)
	report(fmt.Sprintf("insert (%d chunks, refcount disabled)", count), len(data), insertElapsed)

	start = time.Now()
	for _, d := range digests {
		if err := store.Release(ctx, d); err != nil {
			fail("release: %v", err)
		}
	}
	releaseElapsed := time.Since(start)
	report(fmt.Sprintf("release (%d chunks, refcount disabled)", count), len(data), releaseElapsed)
}

func reportFreeSpace(dir string) {
	usage, err := disk.Usage(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not determine free disk space for %q: %v\n", dir, err)
		return
	}
	fmt.Printf("free disk space at %s: %.2f GiB\n", dir, float64(usage.Free)/(1<<30))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		fail("generating random benchmark data: %v", err)
	}
	return b
}

func report(op string, n int, elapsed time.Duration) {
	mbPerSec := float64(n) / (1 << 20) / elapsed.Seconds()
	fmt.Printf("%-40s %10d bytes in %10s (%.2f MiB/s)\n", op, n, elapsed, mbPerSec)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
