package profile

import "time"

// Builtin returns the static application matrix shipped with caret.
// Weights rank applications by how often dictation targets them.
func Builtin() Table {
	table, err := NewTable([]Profile{
		{Process: "chrome", DisplayName: "Google Chrome", Weight: 3},
		{Process: "firefox", DisplayName: "Firefox", Weight: 2, UseUnicodeFix: true},
		{Process: "code", DisplayName: "Visual Studio Code", Weight: 3, InterCharDelay: 10 * time.Millisecond},
		{Process: "idea", DisplayName: "IntelliJ IDEA", Weight: 2, UseUnicodeFix: true, InterCharDelay: 12 * time.Millisecond},
		{Process: "soffice.bin", DisplayName: "LibreOffice", Weight: 1.5, UseUnicodeFix: true, LinePause: 30 * time.Millisecond},
		{Process: "slack", DisplayName: "Slack", Weight: 1.5, PreferClipboard: true},
		{Process: "obsidian", DisplayName: "Obsidian", Weight: 1, PreferClipboard: true},
		{Process: "gnome-text-editor", DisplayName: "Text Editor", Weight: 1},
		{Process: "kitty", DisplayName: "kitty", Weight: 1, PasteShortcut: "CTRL SHIFT,V", LinePause: 20 * time.Millisecond},
		{Process: "ghostty", DisplayName: "Ghostty", Weight: 1, PasteShortcut: "CTRL SHIFT,V", UseUnicodeFix: true},
		{Process: "alacritty", DisplayName: "Alacritty", Weight: 0.5, PasteShortcut: "CTRL SHIFT,V", InterCharDelay: 15 * time.Millisecond},
	})
	if err != nil {
		panic(err)
	}
	return table
}
