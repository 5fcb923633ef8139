package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/festival-planner/app/internal/middleware"
)

// hashPassword prompts for the admin password twice and prints its bcrypt
// hash for ADMIN_PASSWORD_HASH.
func hashPassword(args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: server hash-password\n\n")
		fmt.Fprintf(os.Stderr, "Reads a password from the terminal and prints a bcrypt hash.\n")
		fmt.Fprintf(os.Stderr, "Put the result in ADMIN_PASSWORD_HASH (or server.admin.password_hash).\n")
	}
	fs.Parse(args)

	password, err := readPassword("Enter password:   ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	hash, err := middleware.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassword hides input on a terminal and reads a plain line otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
