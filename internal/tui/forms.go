// Package tui provides interactive terminal prompts.
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrCanceled is returned when the user aborts a prompt.
var ErrCanceled = errors.New("prompt canceled")

// Credentials is what the login form collects.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// PromptCredentials asks for a client ID and secret. Fields already set in
// prefill are kept and not asked for again; the secret is masked.
func PromptCredentials(origin string, prefill Credentials) (Credentials, error) {
	result := prefill

	var fields []huh.Field
	if result.ClientID == "" {
		fields = append(fields, huh.NewInput().
			Title("Client ID").
			Value(&result.ClientID).
			Validate(required))
	}
	if result.ClientSecret == "" {
		fields = append(fields, huh.NewInput().
			Title("Client secret").
			EchoMode(huh.EchoModePassword).
			Value(&result.ClientSecret).
			Validate(required))
	}
	if len(fields) == 0 {
		return result, nil
	}

	form := huh.NewForm(
		huh.NewGroup(fields...).
			Title("Roaring API credentials").
			Description("Stored for " + origin),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Credentials{}, ErrCanceled
		}
		return Credentials{}, err
	}
	return result, nil
}

// Confirm shows a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, ErrCanceled
		}
		return defaultValue, err
	}
	return result, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("this field is required")
	}
	return nil
}
