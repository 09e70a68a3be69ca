package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"hashdb/pkg/hash"

	"golang.org/x/sync/errgroup"
)

// Listens for SIGINT or SIGTERM and closes the index.
func setupCloseHandler(index *hash.HashIndex) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		index.Close()
		os.Exit(0)
	}()
}

// stress runs a worker's share of the random workload. Duplicate inserts and
// misses are part of the workload; only page faults count as failures.
func stress(index *hash.HashIndex, seed int64, keySpace int64, ops int) error {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < ops; i++ {
		key := rng.Int63n(keySpace)
		switch rng.Intn(10) {
		case 0:
			if err := index.Delete(key, key); err != nil && !errors.Is(err, hash.ErrKeyNotFound) {
				return err
			}
		case 1, 2, 3:
			if _, err := index.FindAll(key); err != nil {
				return err
			}
		default:
			if err := index.Insert(key, key); err != nil && !errors.Is(err, hash.ErrNotInserted) {
				return err
			}
		}
	}
	return nil
}

// Hammer the index from several goroutines, then check its invariants.
func main() {
	var dbFlag = flag.String("db", "data/stress.db", "database file")
	var nFlag = flag.Int("n", 8, "number of goroutines to run")
	var opsFlag = flag.Int("ops", 10000, "operations per goroutine")
	var keysFlag = flag.Int64("keys", 4096, "size of the key space")
	var seedFlag = flag.Int64("seed", 1, "workload seed")
	flag.Parse()

	index, err := hash.OpenTable(*dbFlag)
	if err != nil {
		panic(err)
	}
	defer index.Close()
	setupCloseHandler(index)

	var eg errgroup.Group
	for i := 0; i < *nFlag; i++ {
		seed := *seedFlag + int64(i)
		eg.Go(func() error {
			return stress(index, seed, *keysFlag, *opsFlag)
		})
	}
	if err := eg.Wait(); err != nil {
		fmt.Println("workload failed:", err)
		os.Exit(1)
	}

	ok, err := hash.IsHash(index)
	if err != nil {
		fmt.Println("verification failed:", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("hashing invariants violated")
		os.Exit(1)
	}
	entries, err := index.Select()
	if err != nil {
		fmt.Println("select failed:", err)
		os.Exit(1)
	}
	fmt.Printf("ok: %d goroutines, %d ops each, %d live entries\n", *nFlag, *opsFlag, len(entries))
}
