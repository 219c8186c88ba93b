package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// SummarizeDay renders a plain-text recap of a day's blocks, e.g.
// "2025-03-04: 9h10m Home, 8h Office (work); travel 1h5m in 3 trips; unaccounted 2h."
func SummarizeDay(date string, bs []models.LocationBlock) string {
	type place struct {
		name string
		dur  time.Duration
	}
	byPlace := make(map[string]*place)
	var travel, unknown time.Duration
	trips := 0

	for _, b := range bs {
		switch b.Kind {
		case models.BlockTravel:
			travel += b.Duration()
			trips++
		case models.BlockUnknown:
			unknown += b.Duration()
		default:
			name := placeName(b)
			p, ok := byPlace[name]
			if !ok {
				p = &place{name: name}
				byPlace[name] = p
			}
			p.dur += b.Duration()
		}
	}

	places := make([]*place, 0, len(byPlace))
	for _, p := range byPlace {
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool {
		if places[i].dur != places[j].dur {
			return places[i].dur > places[j].dur
		}
		return places[i].name < places[j].name
	})

	var parts []string
	if len(places) > 0 {
		items := make([]string, len(places))
		for i, p := range places {
			items[i] = fmt.Sprintf("%s %s", formatDuration(p.dur), p.name)
		}
		parts = append(parts, strings.Join(items, ", "))
	}
	if trips > 0 {
		noun := "trips"
		if trips == 1 {
			noun = "trip"
		}
		parts = append(parts, fmt.Sprintf("travel %s in %d %s", formatDuration(travel), trips, noun))
	}
	if unknown > 0 {
		parts = append(parts, "unaccounted "+formatDuration(unknown))
	}
	if len(parts) == 0 {
		return date + ": no data."
	}
	return date + ": " + strings.Join(parts, "; ") + "."
}

func placeName(b models.LocationBlock) string {
	name := b.Label
	if b.Kind == models.BlockSleepCandidate && name == "" {
		name = "sleep"
	}
	if name == "" {
		name = "unnamed place"
	}
	if b.Category != "" && b.Category != models.CategoryUnknown && b.Category != name {
		name += " (" + b.Category + ")"
	}
	return name
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h, m := int(d.Hours()), int(d.Minutes())%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
