package cli

import (
	"bufio"
	"io"
	"log"
	"os"
	"strings"
)

var Stderr = log.New(os.Stderr, "", 0)
var Stdout = log.New(os.Stdout, "", 0)

// Stdin is where confirmation responses are read from.
var Stdin io.Reader = os.Stdin

func Exit(err error) {
	if err != nil {
		Stderr.Println(err)
		os.Exit(1)
	}
	os.Exit(0)
}

// AskForConfirmation prints prompt and reads a response from Stdin until the user answers.
// Only a capital "Y" confirms; "n", "N", "no", "No" and "NO" decline, as does end of input.
// Returns true without prompting when skipConfirmation is set.
func AskForConfirmation(prompt string, skipConfirmation bool) bool {
	if skipConfirmation {
		return true
	}
	reader := bufio.NewReader(Stdin)
	for {
		Stdout.Printf("%s (please type Y or N): ", prompt)
		line, err := reader.ReadString('\n')
		response := strings.TrimSpace(line)
		switch response {
		case "Y":
			return true
		case "n", "N", "no", "No", "NO":
			return false
		}
		if err != nil {
			if err != io.EOF {
				Stderr.Printf("Error reading confirmation response: %s", err)
			}
			return false
		}
		prompt = "Please type (capital) Y for Yes or N for No and press enter"
	}
}
