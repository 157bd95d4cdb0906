package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword prompts once on the controlling terminal and returns the
// entered text with the trailing newline stripped, the way lncli prompts
// for a wallet password without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// newWalletPassword prompts twice and requires the two entries to match,
// spec.md section 4.D's "prompt twice for a password" requirement for
// first-run wallet creation.
func newWalletPassword() (string, error) {
	for {
		first, err := readPassword("Enter a new wallet password: ")
		if err != nil {
			return "", err
		}
		second, err := readPassword("Confirm wallet password: ")
		if err != nil {
			return "", err
		}
		if first != second {
			fmt.Println("passwords did not match, try again")
			continue
		}
		return first, nil
	}
}
