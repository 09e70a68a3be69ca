package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"hashdb/pkg/config"
	"hashdb/pkg/hash"
	"hashdb/pkg/pager"
	"hashdb/pkg/repl"

	"github.com/google/uuid"
)

// Default port 8335 (BEES).
const DEFAULT_PORT int = 8335

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

// Start listening for connections at port `port`, running the repl on each.
func startServer(r *repl.REPL, prompt string, port int) {
	handleConn := func(c net.Conn) {
		defer c.Close()
		r.Run(uuid.New(), prompt, c, c)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%v server started listening on localhost:%v\n", config.DBName,
		listener.Addr().(*net.TCPAddr).Port)
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Print(err)
			continue
		}
		go handleConn(conn)
	}
}

// Start the database.
func main() {
	// Set up flags.
	var promptFlag = flag.Bool("c", true, "use prompt?")
	var dbFlag = flag.String("db", "data/hash.db", "database file")
	var serverFlag = flag.Bool("server", false, "serve the REPL over tcp instead of stdin")
	var portFlag = flag.Int("p", DEFAULT_PORT, "port number (server mode)")
	var pagerFlag = flag.Bool("pager", false, "also mount the pager debugging commands")
	flag.Parse()

	// Open the index.
	index, err := hash.OpenTable(*dbFlag)
	if err != nil {
		panic(err)
	}
	defer index.Close()
	setupCloseHandler(index)

	// Set up REPL resources.
	prompt := config.GetPrompt(*promptFlag)
	repls := []*repl.REPL{hash.HashRepl(index)}
	if *pagerFlag {
		pRepl, err := pager.PagerRepl()
		if err != nil {
			fmt.Println(err)
			return
		}
		repls = append(repls, pRepl)
	}
	r, err := repl.CombineRepls(repls)
	if err != nil {
		fmt.Println(err)
		return
	}
	r.EnableHistory(filepath.Join(filepath.Dir(*dbFlag), config.HistoryFileName))

	if *serverFlag {
		startServer(r, prompt, *portFlag)
	} else {
		r.Run(uuid.New(), prompt, nil, nil)
	}
}
