package configure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// Run runs the interactive wizard that writes database and Management API
// settings to envPath. Existing values, including keys the wizard does not
// know about, are kept. Secrets are read without echo when stdin is a
// terminal.
func Run(envPath string) error {
	var readSecret func() (string, error)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		readSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return string(b), err
		}
	}
	return run(envPath, os.Stdin, os.Stderr, readSecret)
}

func run(envPath string, input io.Reader, output io.Writer, readSecret func() (string, error)) error {
	values, err := godotenv.Read(envPath)
	isNew := err != nil
	if isNew {
		values = map[string]string{}
		applyDefaults(values)
	}

	p := &prompter{
		scanner:    bufio.NewScanner(input),
		output:     output,
		isNew:      isNew,
		readSecret: readSecret,
	}

	fmt.Fprintf(output, "sbschemamcp configuration wizard\n")
	fmt.Fprintf(output, "Env file: %s\n\n", envPath)

	fmt.Fprintf(output, "=== Database ===\n")
	values[EnvDBHost] = p.promptStringWithHint(EnvDBHost, values[EnvDBHost], "e.g. db.<project-ref>.supabase.co")
	values[EnvDBPort] = p.promptPositiveInt(EnvDBPort, values[EnvDBPort])
	values[EnvDBName] = p.promptString(EnvDBName, values[EnvDBName])
	values[EnvDBUser] = p.promptString(EnvDBUser, values[EnvDBUser])
	values[EnvDBPassword] = p.promptSecret(EnvDBPassword, values[EnvDBPassword])
	values[EnvDBSSLMode] = p.promptEnum(EnvDBSSLMode, values[EnvDBSSLMode], sslModes)
	values[EnvReadOnly] = p.promptBool(EnvReadOnly, values[EnvReadOnly])

	fmt.Fprintf(output, "\n=== Management API (optional) ===\n")
	values[EnvProjectRef] = p.promptString(EnvProjectRef, values[EnvProjectRef])
	values[EnvServiceRoleKey] = p.promptSecret(EnvServiceRoleKey, values[EnvServiceRoleKey])

	for k, v := range values {
		if v == "" {
			delete(values, k)
		}
	}

	if err := writeEnv(envPath, values); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}

	fmt.Fprintf(output, "\nConfiguration saved to %s\n", envPath)
	return nil
}

// applyDefaults sets the values a new env file starts from.
func applyDefaults(values map[string]string) {
	values[EnvDBPort] = "5432"
	values[EnvDBName] = "postgres"
	values[EnvDBUser] = "postgres"
	values[EnvDBSSLMode] = "require"
	values[EnvReadOnly] = "true"
}

func writeEnv(envPath string, values map[string]string) error {
	if err := godotenv.Write(values, envPath); err != nil {
		return err
	}
	// The file holds the database password.
	return os.Chmod(envPath, 0o600)
}

// prompter handles reading user input and displaying prompts.
type prompter struct {
	scanner    *bufio.Scanner
	output     io.Writer
	isNew      bool
	readSecret func() (string, error)
}

func (p *prompter) readLine() string {
	if p.scanner.Scan() {
		return strings.TrimSpace(p.scanner.Text())
	}
	return ""
}

func (p *prompter) valueLabel() string {
	if p.isNew {
		return "default"
	}
	return "current"
}

func (p *prompter) promptString(field string, current string) string {
	fmt.Fprintf(p.output, "%s (%s: %q): ", field, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptStringWithHint(field string, current string, hint string) string {
	fmt.Fprintf(p.output, "%s [%s] (%s: %q): ", field, hint, p.valueLabel(), current)
	input := p.readLine()
	if input == "" {
		return current
	}
	return input
}

// promptSecret never echoes the current value.
func (p *prompter) promptSecret(field string, current string) string {
	state := "not set"
	if current != "" {
		state = "set"
	}
	fmt.Fprintf(p.output, "%s (%s: %s, Enter keeps it): ", field, p.valueLabel(), state)

	var input string
	if p.readSecret != nil {
		s, err := p.readSecret()
		if err != nil {
			return current
		}
		input = strings.TrimSpace(s)
	} else {
		input = p.readLine()
	}
	if input == "" {
		return current
	}
	return input
}

func (p *prompter) promptPositiveInt(field string, current string) string {
	for {
		fmt.Fprintf(p.output, "%s [must be > 0] (%s: %q): ", field, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid integer %q, try again.\n", input)
			continue
		}
		if val <= 0 {
			fmt.Fprintf(p.output, "  Value must be > 0, try again.\n")
			continue
		}
		return input
	}
}

func (p *prompter) promptBool(field string, current string) string {
	for {
		fmt.Fprintf(p.output, "%s (%s: %q): ", field, p.valueLabel(), current)
		input := p.readLine()
		if input == "" {
			return current
		}
		val, err := parseBool(input)
		if err != nil {
			fmt.Fprintf(p.output, "  Invalid value %q, use true/false/yes/no, try again.\n", input)
			continue
		}
		return strconv.FormatBool(val)
	}
}

func (p *prompter) promptEnum(field string, current string, allowed []string) string {
	for {
		fmt.Fprintf(p.output, "%s (%s: %q, options: %s): ", field, p.valueLabel(), current, strings.Join(allowed, ", "))
		input := p.readLine()
		if input == "" {
			return current
		}
		for _, v := range allowed {
			if input == v {
				return input
			}
		}
		fmt.Fprintf(p.output, "  Invalid value %q, must be one of: %s\n", input, strings.Join(allowed, ", "))
	}
}
