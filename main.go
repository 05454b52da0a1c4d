package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"huta_go/pkg/config"
	"huta_go/pkg/foundation"
	"huta_go/pkg/memory"
	"huta_go/pkg/workpool"
)

var (
	configDir = flag.String("config", ".", "Directory holding huta.yaml")
	workers   = flag.Int("workers", 0, "Worker count (overrides huta.yaml when > 0)")
	objects   = flag.Int("objects", 1000, "Objects to allocate per scenario")
	verbose   = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Huta Go - Manual Reference Counting Runtime\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                        # Run the scenarios with huta.yaml from .\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config ./etc -v       # Use ./etc/huta.yaml, print each step\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -workers 8 -objects 10000 # Bigger run\n", os.Args[0])
	}
	flag.Parse()

	resolved, err := config.Resolve(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		resolved.Workers = *workers
	}
	if *objects < 1 {
		fmt.Fprintf(os.Stderr, "Error: -objects must be >= 1\n")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	memory.SetDefault(resolved.MemoryConfig(logger))

	if err := runContainers(*objects); err != nil {
		memory.Shutdown()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := runWorkers(resolved.WorkerConfig(logger), *objects); err != nil {
		memory.Shutdown()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printStats(memory.Default().Stats())
	// Drains the bootstrap pool and writes the leak report.
	memory.Shutdown()
}

// runContainers exercises the containers on the default manager inside
// nested autorelease scopes.
func runContainers(n int) error {
	var err error
	memory.Scope("containers", func(*memory.Pool) {
		index := memory.Autorelease(foundation.NewDictionary())
		names := memory.Autorelease(foundation.NewArrayWithCapacity(n))

		for i := 0; i < n; i++ {
			id, gerr := foundation.NewGUID()
			if gerr != nil {
				err = gerr
				return
			}
			memory.Autorelease(id)
			name := memory.Autorelease(foundation.NewStringf("object-%d", i))
			names.AddObject(name)
			if err = index.SetObject(name, id); err != nil {
				return
			}
		}
		if *verbose {
			fmt.Printf("indexed %d names (pending in scope: %d)\n", index.Len(), memory.CurrentPool().Len())
		}

		memory.Scope("clone", func(*memory.Pool) {
			clone, cerr := names.CloneArray()
			if cerr != nil {
				err = cerr
				return
			}
			memory.Autorelease(clone)

			csv := memory.Autorelease(foundation.NewString(""))
			clone.Each(func(i int, r memory.Ref) bool {
				if i > 0 {
					csv.Append(",")
				}
				csv.Append(r.(*foundation.String).Value())
				return i < 9
			})
			parts, serr := csv.Split(`,\s*`)
			if serr != nil {
				err = serr
				return
			}
			memory.Autorelease(parts)

			unique := memory.Autorelease(foundation.NewSet())
			parts.Each(func(_ int, r memory.Ref) bool {
				unique.AddObject(r)
				return true
			})
			if *verbose {
				fmt.Printf("cloned %d names, first %d joined: %s (%d distinct pieces)\n",
					clone.Len(), parts.Len(), csv, unique.Len())
			}
		})
		if err != nil {
			return
		}

		keys := memory.Autorelease(index.AllKeys())
		removed := index.RemoveObjectsForKeys(keys)
		if *verbose {
			fmt.Printf("removed %d entries, %d left\n", removed, index.Len())
		}
	})
	return err
}

// runWorkers spreads string work across a worker pool. Each task allocates
// on its worker's manager.
func runWorkers(cfg workpool.Config, n int) error {
	pool := workpool.New(cfg)
	defer pool.Release()

	for i := 0; i < cfg.Workers*4; i++ {
		i := i
		err := pool.Submit(context.Background(), func(m *memory.Manager) error {
			words := memory.Autorelease(foundation.NewArray(memory.WithManager(m)))
			for j := 0; j < n/cfg.Workers+1; j++ {
				s := memory.Autorelease(foundation.NewString(fmt.Sprintf("task %d word %d", i, j), memory.WithManager(m)))
				words.AddObject(s)
			}
			last, err := words.LastObject()
			if err != nil {
				return err
			}
			parts, err := last.(*foundation.String).Split(" ")
			if err != nil {
				return err
			}
			defer parts.Release()
			if parts.Len() != 4 {
				return fmt.Errorf("task %d: expected 4 words, got %d", i, parts.Len())
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := pool.Wait(); err != nil {
		return err
	}
	if *verbose {
		stats := pool.Stats()
		fmt.Printf("workers: %d, tasks submitted %d, completed %d, failed %d\n",
			pool.Workers(), stats.Submitted, stats.Completed, stats.Failed)
	}
	return nil
}

func printStats(s memory.Stats) {
	fmt.Printf("=== Pool Statistics ===\n")
	fmt.Printf("Pools pushed:         %d\n", s.PoolsPushed)
	fmt.Printf("Pools popped:         %d\n", s.PoolsPopped)
	fmt.Printf("Max depth:            %d\n", s.MaxDepth)
	fmt.Printf("Objects autoreleased: %d\n", s.ObjectsAutoreleased)
	fmt.Printf("Objects drained:      %d\n", s.ObjectsDrained)
	if s.DoubleAutoreleases > 0 {
		fmt.Printf("Double autoreleases:  %d\n", s.DoubleAutoreleases)
	}
}
