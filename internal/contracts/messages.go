package contracts

// Commands understood by the panel.
const (
	// CommandShowHTML replaces the panel body with rendered snippet HTML.
	CommandShowHTML = "showHtml"
	// CommandUpdateConfig tells the panel which delimiters are in use.
	CommandUpdateConfig = "updateConfig"
	// CommandUpdateTheme switches the highlight stylesheet.
	CommandUpdateTheme = "updateTheme"
)

// Commands sent by the panel.
const (
	// CommandUpdateDelimiters asks the controller to persist new delimiters.
	CommandUpdateDelimiters = "updateDelimiters"
	// CommandSettingsClicked asks the controller to open the settings.
	CommandSettingsClicked = "settingsClicked"
)

// Outbound is a message from the controller to the panel.
type Outbound interface {
	Command() string
	outbound()
}

// Inbound is a message from the panel to the controller.
type Inbound interface {
	Command() string
	inbound()
}

// ShowHTML carries a rendered snippet.
type ShowHTML struct {
	HTML string `json:"html"`
}

// UpdateConfig carries the active delimiter settings.
type UpdateConfig struct {
	StartDelimiter string `json:"startDelimiter"`
	EndDelimiter   string `json:"endDelimiter"`
	Same           bool   `json:"same"`
}

// UpdateTheme carries the resolved highlight theme and the stylesheet URL
// the panel should load for it.
type UpdateTheme struct {
	Theme      string `json:"theme"`
	Stylesheet string `json:"stylesheet,omitempty"`
}

// UpdateDelimiters is the panel's request to change delimiters.
type UpdateDelimiters struct {
	StartDelimiter string `json:"startDelimiter"`
	EndDelimiter   string `json:"endDelimiter"`
	Same           bool   `json:"same"`
}

// SettingsClicked is the panel's request to open the settings.
type SettingsClicked struct{}

func (ShowHTML) Command() string         { return CommandShowHTML }
func (UpdateConfig) Command() string     { return CommandUpdateConfig }
func (UpdateTheme) Command() string      { return CommandUpdateTheme }
func (UpdateDelimiters) Command() string { return CommandUpdateDelimiters }
func (SettingsClicked) Command() string  { return CommandSettingsClicked }

func (ShowHTML) outbound()     {}
func (UpdateConfig) outbound() {}
func (UpdateTheme) outbound()  {}

func (UpdateDelimiters) inbound() {}
func (SettingsClicked) inbound()  {}
