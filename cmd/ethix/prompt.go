package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"ethix/internal/audit"
)

// promptProfile collects a service profile interactively.
func promptProfile(name string) (audit.ServiceProfile, error) {
	var profile audit.ServiceProfile
	var err error

	fmt.Println(bold("Service profile"))
	fmt.Println("Describe the AI service to assess. Optional fields may be left blank.")
	fmt.Println()

	if name == "" {
		name, err = askRequired("Service name")
		if err != nil {
			return profile, err
		}
	}
	profile.Name = name

	profile.Purpose, err = askRequired("Main purpose")
	if err != nil {
		return profile, err
	}
	profile.Users, err = askOptional("Target users")
	if err != nil {
		return profile, err
	}
	features, err := askOptional("Key features (comma-separated)")
	if err != nil {
		return profile, err
	}
	profile.Features = splitList(features)

	profile.DataInput, err = askOptional("Input data")
	if err != nil {
		return profile, err
	}
	profile.DataOutput, err = askOptional("Output data")
	if err != nil {
		return profile, err
	}
	sources, err := askOptional("Training data sources (comma-separated)")
	if err != nil {
		return profile, err
	}
	profile.DataSources = splitList(sources)

	profile.Model, err = askOptional("Underlying model")
	if err != nil {
		return profile, err
	}

	sensitive := promptui.Select{
		Label: "Does the service handle sensitive personal data",
		Items: []string{"no", "yes"},
	}
	_, answer, err := sensitive.Run()
	if err != nil {
		return profile, err
	}
	profile.SensitiveData = answer == "yes"

	return profile, nil
}

func askRequired(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		},
	}
	return prompt.Run()
}

func askOptional(label string) (string, error) {
	prompt := promptui.Prompt{Label: label + " (optional)"}
	value, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// consoleCollector asks the reviewer for feedback when the assessment
// crosses the risk threshold. Without a TTY it declines, which keeps
// the initial assessment.
type consoleCollector struct{}

func (consoleCollector) Collect(ctx context.Context, assessment audit.Assessment, highRisk []string) (string, error) {
	if !isTTY() {
		return "", nil
	}

	fmt.Println()
	fmt.Printf("%s the assessment flagged high-risk categories:\n", yellow("Review needed:"))
	for _, category := range highRisk {
		entry := assessment[category]
		fmt.Printf("  %s %s (%.1f): %s\n", red("!"), bold(category), entry.Score, entry.Comment)
	}
	fmt.Println()
	fmt.Println("Enter feedback to trigger one re-evaluation, or leave blank to accept.")

	prompt := promptui.Prompt{Label: "Feedback"}
	feedback, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(feedback), nil
}
