// hashupdate - refreshes the SHA-384 subresource-integrity hashes for
// the static assets referenced by the map UI's index.html.
//
// Usage:
//
//	hashupdate              # rewrite stale hashes in place
//	hashupdate -check       # report stale hashes, exit 1 if any
//	hashupdate -verbose     # show every entry, current or not
package main

import (
	"crypto/sha512"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	indexFlag   = flag.String("index", "static/index.html", "Path to index.html")
	checkFlag   = flag.Bool("check", false, "Report stale hashes without rewriting")
	verboseFlag = flag.Bool("verbose", false, "Show every integrity entry")
)

// integrityPattern matches src/href attributes pointing into static/
// that carry an integrity hash.
var integrityPattern = regexp.MustCompile(`(?:src|href)="(static/[^"]+)"[^>]*?integrity="(sha384-[^"]+)"`)

func main() {
	flag.Parse()

	html, err := os.ReadFile(*indexFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *indexFlag, err)
		os.Exit(1)
	}

	// Asset paths in index.html are relative to its parent directory.
	baseDir := filepath.Dir(filepath.Dir(*indexFlag))

	updated := string(html)
	stale := 0
	entries := 0

	for _, match := range integrityPattern.FindAllStringSubmatch(string(html), -1) {
		assetPath, currentHash := match[1], match[2]
		entries++

		wantHash, err := fileHash(filepath.Join(baseDir, assetPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", assetPath, err)
			continue
		}

		if wantHash == currentHash {
			if *verboseFlag {
				fmt.Printf("  ok      %s\n", assetPath)
			}
			continue
		}

		stale++
		if *checkFlag {
			fmt.Printf("  stale   %s\n", assetPath)
			continue
		}
		updated = strings.ReplaceAll(updated, currentHash, wantHash)
		fmt.Printf("  updated %s\n", assetPath)
	}

	switch {
	case *checkFlag && stale > 0:
		fmt.Printf("%d of %d integrity hashes stale\n", stale, entries)
		os.Exit(1)
	case *checkFlag:
		fmt.Printf("all %d integrity hashes current\n", entries)
	case stale > 0:
		if err := os.WriteFile(*indexFlag, []byte(updated), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", *indexFlag, err)
			os.Exit(1)
		}
		fmt.Printf("updated %d of %d integrity hashes\n", stale, entries)
	default:
		fmt.Printf("all %d integrity hashes current\n", entries)
	}
}

// fileHash returns the base64 SHA-384 of a file in SRI form.
func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha512.Sum384(data)
	return "sha384-" + base64.StdEncoding.EncodeToString(sum[:]), nil
}
