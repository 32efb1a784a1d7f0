package display

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// TemplateVars holds the values substituted into the fallback message.
type TemplateVars struct {
	IP         string
	Hostname   string
	Source     string
	Width      int
	Height     int
	Resolution string
	Time       string
}

// ExpandTemplate replaces the <token> placeholders in a fallback message
// with their current values. Unknown tokens pass through unchanged.
func ExpandTemplate(tmpl string, vars TemplateVars) string {
	r := strings.NewReplacer(
		"<ip>", vars.IP,
		"<hostname>", vars.Hostname,
		"<source>", vars.Source,
		"<width>", fmt.Sprintf("%d", vars.Width),
		"<height>", fmt.Sprintf("%d", vars.Height),
		"<resolution>", vars.Resolution,
		"<time>", vars.Time,
	)
	return r.Replace(tmpl)
}

// templateVars gathers the live values for the display at the given output
// size. source may be empty when nothing is selected.
func templateVars(source string, width, height int) TemplateVars {
	vars := TemplateVars{
		IP:         localIP(),
		Source:     source,
		Width:      width,
		Height:     height,
		Resolution: fmt.Sprintf("%dx%d", width, height),
		Time:       time.Now().Format("15:04:05"),
	}
	if host, err := os.Hostname(); err == nil {
		vars.Hostname = host
	}
	return vars
}

// localIP returns the interface address used for outbound traffic. No
// packets are sent; the dial only resolves the route.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "unknown"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "unknown"
}
