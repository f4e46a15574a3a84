package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ParraLuca/AlertMe/models"
)

// LoadDefinitions reads the alert-definition journal: one JSON event
// per line, replayed in file order. "add" and "update" set the
// definition, "delete" removes it; a line with no action is a legacy
// flat row and counts as an add. The effective set keeps first-added
// order and is deduplicated by site, url and subscriber.
func LoadDefinitions(path string) ([]models.AlertDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions journal: %w", err)
	}
	defer f.Close()

	byKey := map[string]models.AlertDefinition{}
	var order []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ev models.JournalEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			log.Printf("[definitions] ⚠ line %d unreadable, skipping: %v", lineNo, err)
			continue
		}

		def := ev.Alert
		if def.Site == "" && ev.Site != "" {
			// Legacy flat row.
			def = models.AlertDefinition{Site: ev.Site, URL: ev.URL, Email: ev.Email, Pages: ev.Pages}
		}
		if def.Site == "" || def.Email == "" {
			log.Printf("[definitions] ⚠ line %d has no site/email, skipping", lineNo)
			continue
		}
		key := definitionKey(def)

		switch strings.ToLower(ev.Action) {
		case "delete":
			if _, ok := byKey[key]; ok {
				delete(byKey, key)
				order = remove(order, key)
			}
		default: // add, update, legacy
			if _, ok := byKey[key]; !ok {
				order = append(order, key)
			}
			byKey[key] = def
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read definitions journal: %w", err)
	}

	out := make([]models.AlertDefinition, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

func definitionKey(def models.AlertDefinition) string {
	return strings.ToLower(def.Site) + "|" + def.URL + "|" + strings.ToLower(def.Email)
}

func remove(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
