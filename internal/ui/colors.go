package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF4D4F", "#FFA500", "#3B82F6", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title   lipgloss.Style
	header  lipgloss.Style
	section lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	info    lipgloss.Style
	help    lipgloss.Style
	badge   lipgloss.Style
	toast   lipgloss.Style
}

func NewPalette(t, s, e, w, i, h string) *Palette {
	return &Palette{
		title:   NewBold(t).MarginBottom(1),
		header:  NewBold(t).Padding(0, 1).Border(lipgloss.NormalBorder(), false, false, true, false),
		section: NewBold(t).MarginTop(1),
		ok:      NewBold(s),
		err:     NewBold(e),
		warn:    NewStyle(w),
		info:    NewStyle(i),
		help:    NewEm(h),
		badge:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color(t)).Padding(0, 1),
		toast:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// toastStyle picks the border and text color for a notification kind.
func (p *Palette) toastStyle(kind string) lipgloss.Style {
	var fg lipgloss.Style
	switch kind {
	case kindSuccess:
		fg = p.ok
	case kindError:
		fg = p.err
	case kindWarning:
		fg = p.warn
	default:
		fg = p.info
	}
	return p.toast.BorderForeground(fg.GetForeground()).Foreground(fg.GetForeground())
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
