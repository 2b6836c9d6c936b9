// Command seccsctl is a thin CLI over the sec-cs façade: put a file,
// get it back by handle, or delete a handle.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	seccs "github.com/i5heu/sec-cs"
	"github.com/i5heu/sec-cs/backend/badgerkv"
	"github.com/i5heu/sec-cs/pkg/masterkey"
)

// runProfile is an optional YAML file read once at startup, outside the
// core, and translated into plain constructor arguments. It is not a
// persisted core config; sec-cs itself has no on-disk config file.
type runProfile struct {
	DataDir   string `yaml:"dataDir"`
	ChunkSize int    `yaml:"chunkSize"`
}

func main() {
	profilePath := flag.String("profile", "", "optional YAML run-profile file")
	dataDirFlag := flag.String("datadir", "", "data directory (overrides run profile)")
	chunkSizeFlag := flag.Int("chunksize", 0, "average chunk size in bytes (overrides run profile)")
	flag.Parse()

	profile := loadProfile(*profilePath)
	if *dataDirFlag != "" {
		profile.DataDir = *dataDirFlag
	}
	if *chunkSizeFlag != 0 {
		profile.ChunkSize = *chunkSizeFlag
	}
	if profile.DataDir == "" {
		profile.DataDir = defaultDataDir()
	}
	if profile.ChunkSize == 0 {
		profile.ChunkSize = 4096
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	if err := os.MkdirAll(profile.DataDir, 0o755); err != nil {
		fail("creating data directory %q: %v", profile.DataDir, err)
	}

	mk, err := masterkey.Load(profile.DataDir)
	if err != nil {
		fail("loading master key: %v", err)
	}

	backend, err := badgerkv.Open(filepath.Join(profile.DataDir, "nodes"))
	if err != nil {
		fail("opening backend: %v", err)
	}
	defer backend.Close()

	store, err := seccs.New(seccs.Config{
		ChunkSize: profile.ChunkSize,
		MasterKey: mk.Bytes(),
	}, backend)
	if err != nil {
		fail("constructing store: %v", err)
	}

	ctx := context.Background()
	switch args[0] {
	case "put":
		if len(args) < 2 {
			fail("usage: seccsctl put <file>")
		}
		runPut(ctx, store, args[1])
	case "get":
		if len(args) < 3 {
			fail("usage: seccsctl get <handle> <output-file>")
		}
		runGet(ctx, store, args[1], args[2])
	case "delete":
		if len(args) < 2 {
			fail("usage: seccsctl delete <handle>")
		}
		runDelete(ctx, store, args[1])
	default:
		usage()
		os.Exit(1)
	}
}

func loadProfile(path string) runProfile {
	var p runProfile
	if path == "" {
		return p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fail("reading run profile %q: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		fail("parsing run profile %q: %v", path, err)
	}
	return p
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		fail("resolving home directory: %v", err)
	}
	return filepath.Join(home, ".sec-cs", "data")
}

func runPut(ctx context.Context, store *seccs.Store, filePath string) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		fail("reading %q: %v", filePath, err)
	}

	h, err := store.PutContent(ctx, content)
	if err != nil {
		fail("storing content: %v", err)
	}

	fmt.Printf("handle: %s\n", hex.EncodeToString(h.Bytes()))
}

func runGet(ctx context.Context, store *seccs.Store, handleHex, outPath string) {
	h, err := parseHandle(handleHex)
	if err != nil {
		fail("invalid handle: %v", err)
	}

	content, err := store.GetContent(ctx, h)
	if err != nil {
		fail("retrieving content: %v", err)
	}

	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		fail("writing %q: %v", outPath, err)
	}
	fmt.Println("retrieved successfully")
}

func runDelete(ctx context.Context, store *seccs.Store, handleHex string) {
	h, err := parseHandle(handleHex)
	if err != nil {
		fail("invalid handle: %v", err)
	}

	if err := store.DeleteContent(ctx, h); err != nil {
		fail("deleting content: %v", err)
	}
	fmt.Println("deleted successfully")
}

func parseHandle(s string) (seccs.Handle, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return seccs.Handle{}, err
	}
	return seccs.ParseHandle(b)
}

func usage() {
	fmt.Println("Usage: seccsctl [-profile file] [-datadir dir] [-chunksize n] <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  put <file>")
	fmt.Println("  get <handle> <output-file>")
	fmt.Println("  delete <handle>")
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
