//go:build linux

package audio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// ListSources asks the PulseAudio (or PipeWire-pulse) server for its
// capture sources.
func ListSources() ([]Source, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("dictate"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	defer c.Close()

	def, _ := c.DefaultSource()
	sources, err := c.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var out []Source
	for _, s := range sources {
		out = append(out, Source{
			ID:      s.ID(),
			Name:    s.Name(),
			Default: def != nil && def.ID() == s.ID(),
		})
	}
	return out, nil
}
