package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"facewarp/pkg/colorutil"
)

// meshTheme is the default fyne theme accented with the overlay color, so
// controls and the drawn mesh read as one palette.
type meshTheme struct {
	fyne.Theme
	accent color.NRGBA
}

// NewTheme returns the application theme with the given accent color.
func NewTheme(accent color.Color) fyne.Theme {
	if accent == nil {
		accent = colorutil.Mesh
	}
	return &meshTheme{
		Theme:  theme.DefaultTheme(),
		accent: color.NRGBAModel.Convert(accent).(color.NRGBA),
	}
}

func (t *meshTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return t.accent
	case theme.ColorNameSelection:
		sel := t.accent
		sel.A = 0x60
		return sel
	case theme.ColorNameError:
		return colorutil.Red
	}
	return t.Theme.Color(name, variant)
}

func (t *meshTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNamePadding {
		return 4
	}
	return t.Theme.Size(name)
}
