// lumen-compose composes every pipeline root of a config without opening a
// window, and prints or writes the results. With -spirv, WGSL roots are also
// compiled to SPIR-V.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/engine"
	"github.com/fosdem/lumen/lib/features"
	lumenlog "github.com/fosdem/lumen/lib/log"
	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/fosdem/lumen/lib/rendering/spirv"
)

// sourceOnly keeps the composed text and nothing else.
type sourceOnly struct{ root string }

func (s *sourceOnly) Root() string { return s.root }

type sourceBackend struct{}

func (sourceBackend) CreatePipeline(root, source string) (pipeline.Pipeline, error) {
	return &sourceOnly{root: root}, nil
}

func (sourceBackend) DestroyPipeline(pipeline.Pipeline) {}

func main() {
	root := flag.String("root", "", "only compose this root")
	out := flag.String("out", "", "write <root>.<lang> (and <root>.spv) into this directory instead of printing")
	compileSpirv := flag.Bool("spirv", false, "compile WGSL roots to SPIR-V; needs -out")
	logLevel := flag.String("log-level", "warn", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <config file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := lumenlog.Setup(*logLevel); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Parse(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if *compileSpirv {
		if features.Language(cfg.Language) != features.WGSL {
			log.Fatalf("-spirv needs a wgsl config, this one is %s", cfg.Language)
		}
		if *out == "" {
			log.Fatalf("-spirv needs -out")
		}
	}

	var backend pipeline.Backend = sourceBackend{}
	if *compileSpirv {
		backend = spirv.NewBackend()
	}
	e, err := engine.New(cfg, backend, nil)
	if err != nil {
		log.Fatal(err)
	}
	err = e.Start()
	if err != nil {
		log.Fatal(err)
	}
	defer e.Stop()

	roots := e.Cache.Roots()
	if *root != "" {
		if !slices.Contains(roots, *root) {
			log.Fatalf("no root named %s, have %v", *root, roots)
		}
		roots = []string{*root}
	}

	for _, r := range roots {
		src, _ := e.Cache.Source(r)
		if *out == "" {
			fmt.Printf("// ---- %s ----\n%s\n", r, src)
			continue
		}

		path := filepath.Join(*out, r+"."+cfg.Language)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Println(path)

		p, _ := e.Cache.Pipeline(r)
		if m, ok := p.(*spirv.Module); ok {
			path := filepath.Join(*out, r+".spv")
			if err := writeWords(path, m.Words); err != nil {
				log.Fatal(err)
			}
			fmt.Println(path)
		}
	}
}

func writeWords(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, words); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
