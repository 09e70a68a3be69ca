package hash

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hashdb/pkg/repl"
)

// HashRepl creates a REPL for interacting with the given index.
func HashRepl(index *HashIndex) *repl.REPL {
	r := repl.NewRepl()

	r.AddCommand("find", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleFind(index, payload)
	}, "Find the first entry with the given key. usage: find <key>")

	r.AddCommand("find_all", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleFindAll(index, payload)
	}, "Find every value stored under the given key. usage: find_all <key>")

	r.AddCommand("insert", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleInsert(index, payload)
	}, "Insert a key-value pair. usage: insert <key> <value>")

	r.AddCommand("delete", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleDelete(index, payload)
	}, "Delete a key-value pair. usage: delete <key> <value>")

	r.AddCommand("select", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleSelect(index, payload)
	}, "Select all entries in the index. usage: select")

	r.AddCommand("print", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePrint(index, payload)
	}, "Print the index, or a single bucket page. usage: print [<page_num>]")

	r.AddCommand("verify", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandleVerify(index, payload)
	}, "Check the index's hashing invariants. usage: verify")

	r.AddCommand("backup", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandleBackup(index, payload)
	}, "Copy the database file into a directory. usage: backup <dir>")

	return r
}

// Function to find the first entry with a key.
func HandleFind(index *HashIndex, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: find <key>
	if len(fields) != 2 {
		return "", errors.New("usage: find <key>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", err
	}
	e, err := index.Find(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("found entry: (%d, %d)", e.Key, e.Value), nil
}

// Function to find every value stored under a key.
func HandleFindAll(index *HashIndex, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: find_all <key>
	if len(fields) != 2 {
		return "", errors.New("usage: find_all <key>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", err
	}
	values, err := index.FindAll(key)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", ErrKeyNotFound
	}
	w := new(strings.Builder)
	for _, value := range values {
		fmt.Fprintf(w, "(%d, %d)\n", key, value)
	}
	return w.String(), nil
}

// Function to insert an entry into the index.
func HandleInsert(index *HashIndex, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: insert <key> <value>
	if len(fields) != 3 {
		return errors.New("usage: insert <key> <value>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	value, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return err
	}
	return index.Insert(key, value)
}

// Function to delete an entry from the index.
func HandleDelete(index *HashIndex, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: delete <key> <value>
	if len(fields) != 3 {
		return errors.New("usage: delete <key> <value>")
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	value, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return err
	}
	return index.Delete(key, value)
}

// Function to select all entries in the index.
func HandleSelect(index *HashIndex, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: select
	if len(fields) != 1 {
		return "", errors.New("usage: select")
	}
	entries, err := index.Select()
	if err != nil {
		return "", err
	}
	w := new(strings.Builder)
	for _, e := range entries {
		fmt.Fprintf(w, "(%d, %d)\n", e.Key, e.Value)
	}
	return w.String(), nil
}

// Function to print out the index, or one bucket page of it.
func HandlePrint(index *HashIndex, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	w := new(strings.Builder)
	switch len(fields) {
	// Usage: print
	case 1:
		index.Print(w)
	// Usage: print <page_num>
	case 2:
		var pagenum int
		if pagenum, err = strconv.Atoi(fields[1]); err != nil {
			return "", err
		}
		index.PrintPN(pagenum, w)
	default:
		return "", errors.New("usage: print [<page_num>]")
	}
	return w.String(), nil
}

// Function to check the index's hashing invariants.
func HandleVerify(index *HashIndex, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: verify
	if len(fields) != 1 {
		return "", errors.New("usage: verify")
	}
	ok, err := IsHash(index)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("hashing invariants violated")
	}
	return "ok", nil
}

// Function to back up the database file.
func HandleBackup(index *HashIndex, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: backup <dir>
	if len(fields) != 2 {
		return errors.New("usage: backup <dir>")
	}
	return index.GetPager().Backup(fields[1])
}
