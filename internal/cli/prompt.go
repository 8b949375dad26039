package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// promptConfirm asks a yes/no question on stdin. Anything but an explicit
// yes counts as no.
func promptConfirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
