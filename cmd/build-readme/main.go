package main

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"guild-music/internal/command/music"
	"guild-music/pkg/cmd"
)

func main() {
	registry := cmd.NewRegistry()
	for _, c := range music.Commands(&music.Deps{}) {
		registry.Register(c)
	}
	voiceCommands := music.VoiceCommands()

	var buf bytes.Buffer
	for _, c := range registry.GetAll() {
		fmt.Fprintf(&buf, "* **`!%s`**\n  %s", c.Name(), c.Description())
		if voiceCommands[c.Name()] {
			buf.WriteString(" (requires you to be in a voice channel)")
		}
		buf.WriteString("\n\n")
	}

	tmplData, err := os.ReadFile("README.md.tmpl")
	if err != nil {
		panic(err)
	}

	tmpl, err := template.New("readme").Parse(string(tmplData))
	if err != nil {
		panic(err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, map[string]any{"Commands": buf.String()}); err != nil {
		panic(err)
	}

	if err := os.WriteFile("README.md", out.Bytes(), 0644); err != nil {
		panic(err)
	}
}
