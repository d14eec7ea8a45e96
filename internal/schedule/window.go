package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is a time-of-day publish slot in the planner's timezone.
type Window struct {
	Hour   int
	Minute int
}

// String renders the window in HH:MM form.
func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// ParseWindow converts an HH:MM value into a Window.
func ParseWindow(value string) (Window, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("window %q must use HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Window{}, fmt.Errorf("window %q has an invalid hour", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Window{}, fmt.Errorf("window %q has an invalid minute", value)
	}
	return Window{Hour: hour, Minute: minute}, nil
}

// ParseWindows converts a list of HH:MM values, preserving order.
func ParseWindows(values []string) ([]Window, error) {
	windows := make([]Window, 0, len(values))
	for _, value := range values {
		window, err := ParseWindow(value)
		if err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	return windows, nil
}
