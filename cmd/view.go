package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

type ViewState int

const (
	StateIdle ViewState = iota
	StateExtracting
	StateSuccess
	StateError
)

// View is the status shown to the user. Views are values; each state change
// produces a new one.
type View struct {
	State   ViewState
	Message string
	// Busy is true while an export is running and a new one must not start.
	Busy bool
}

func Idle() View {
	return View{State: StateIdle}
}

func Extracting() View {
	return View{State: StateExtracting, Message: "Extracting chat...", Busy: true}
}

// Warned keeps the extracting state while surfacing the scroll-back warning.
func Warned(warning string) View {
	return View{State: StateExtracting, Message: warning, Busy: true}
}

func Saving(count int) View {
	return View{State: StateSuccess, Message: fmt.Sprintf("Found %d messages. Saving...", count), Busy: true}
}

func Succeeded(path string) View {
	return View{State: StateSuccess, Message: fmt.Sprintf("Exported successfully to %s", path)}
}

func Failed(msg string) View {
	if msg == "" {
		msg = "Failed to extract chat"
	}
	return View{State: StateError, Message: msg}
}

// Render returns the status line for v.
func Render(v View) string {
	switch v.State {
	case StateExtracting:
		return color.CyanString("… %s", v.Message)
	case StateSuccess:
		return color.GreenString("✓ %s", v.Message)
	case StateError:
		return color.RedString("✗ %s", v.Message)
	default:
		return ""
	}
}

func show(v View) {
	if line := Render(v); line != "" {
		fmt.Println(line)
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
