package yamlfs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/adapters/yamlfs"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scaffoldSystem(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "system.yaml", `
id: knave
kind: system
name: Knave
version: 1
`)
	writeFile(t, dir, "models/character.yaml", `
id: character
kind: model
name: Character
attributes:
  name: str
  hp:
    type: int
    default: 1
`)
	writeFile(t, dir, "flows/hire.yml", `
id: hire-hireling
kind: flow
name: Hire a Hireling
steps:
  - id: roll-wage
    type: dice_roll
    roll: 1d6
  - id: done
    type: completion
`)
	writeFile(t, dir, "tables/traits.yaml", `
id: traits
kind: table
name: Traits
roll: 1d4
entries:
  - { range: "1", value: brave }
  - { range: "2", value: careless }
  - { range: "3", value: devout }
  - { range: "4", value: greedy }
`)
	return dir
}

func TestLoadAssemblesSystem(t *testing.T) {
	src, err := yamlfs.New(scaffoldSystem(t))
	require.NoError(t, err)

	sys, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "knave", sys.System.ID)
	assert.Contains(t, sys.Models, "character")
	assert.Contains(t, sys.Flows, "hire-hireling")
	assert.Contains(t, sys.Tables, "traits")

	flow, err := sys.Flow("hire-hireling")
	require.NoError(t, err)
	assert.Len(t, flow.Steps, 2)
}

func TestLoadSplitsMultiDocumentFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "all.yaml", `
id: mini
kind: system
name: Mini
---
id: loot
kind: table
roll: 1d2
entries:
  - { value: coins }
  - { value: gems }
`)

	src, err := yamlfs.New(dir)
	require.NoError(t, err)
	sys, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "mini", sys.System.ID)
	assert.Contains(t, sys.Tables, "loot")
}

func TestLoadRequiresSystemDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "table.yaml", "id: loot\nkind: table\nentries: [{value: coins}]\n")

	src, err := yamlfs.New(dir)
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind 'system'")
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	dir := scaffoldSystem(t)
	writeFile(t, dir, "tables/traits-again.yaml", "id: traits\nkind: table\nentries: [{value: bold}]\n")

	src, err := yamlfs.New(dir)
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table id 'traits'")
}

func TestLoadRejectsSecondSystem(t *testing.T) {
	dir := scaffoldSystem(t)
	writeFile(t, dir, "zz-other.yaml", "id: other\nkind: system\nname: Other\n")

	src, err := yamlfs.New(dir)
	require.NoError(t, err)
	_, err = src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second system document")
}

func TestStrictModeFailsOnDanglingReferences(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "system.yaml", "id: broken\nkind: system\nname: Broken\n")
	writeFile(t, dir, "flow.yaml", `
id: bad-flow
kind: flow
steps:
  - id: only
    type: completion
    next_step: nowhere
`)

	lax, err := yamlfs.New(dir)
	require.NoError(t, err)
	_, err = lax.Load(context.Background())
	require.NoError(t, err, "default mode only warns")

	strict, err := yamlfs.New(dir, yamlfs.WithStrict(true))
	require.NoError(t, err)
	_, err = strict.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	_, err := yamlfs.New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestWatchReportsYAMLChanges(t *testing.T) {
	dir := scaffoldSystem(t)
	src, err := yamlfs.New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := src.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "tables/names.yaml", "id: names\nkind: table\nentries: [{value: Alda}]\n")

	select {
	case path := <-changes:
		assert.Contains(t, path, "names.yaml")
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case _, open := <-changes:
		assert.False(t, open, "channel closes on cancel")
	case <-time.After(time.Second):
		t.Fatal("channel did not close")
	}
}
