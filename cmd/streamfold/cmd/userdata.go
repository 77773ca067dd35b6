package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/streamfold/internal/models"
)

// readUserData loads user data from a JSON or YAML file. "-" reads stdin as
// JSON.
func readUserData(path string) (*models.UserData, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // user-supplied path
	}
	if err != nil {
		return nil, fmt.Errorf("reading user data: %w", err)
	}

	var ud models.UserData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ud)
	default:
		err = json.Unmarshal(data, &ud)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing user data %s: %w", path, err)
	}
	return &ud, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
