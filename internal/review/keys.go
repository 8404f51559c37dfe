package review

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down    key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	NextMode    key.Binding
	Sort        key.Binding
	Open, Back  key.Binding
	Viewed      key.Binding
	Interested  key.Binding
	Applied     key.Binding
	Description key.Binding
	Browser     key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	NextPage:    key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→/n", "next page")),
	PrevPage:    key.NewBinding(key.WithKeys("left", "p"), key.WithHelp("←/p", "prev page")),
	NextMode:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "mode")),
	Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
	Back:        key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Viewed:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "viewed")),
	Interested:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "interested")),
	Applied:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "applied")),
	Description: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "description")),
	Browser:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open url")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PrevPage, k.NextPage, k.NextMode, k.Sort, k.Open, k.Viewed, k.Interested, k.Applied, k.Quit}
}

func (k keyMap) detailHelp() []key.Binding {
	return []key.Binding{k.Back, k.Description, k.Browser, k.Viewed, k.Interested, k.Applied, k.Quit}
}
