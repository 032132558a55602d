package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ultrasearch/ultrasearch/pkg/config"
	"github.com/ultrasearch/ultrasearch/pkg/volume"
)

func TestVolumeContentIndexingPrefersGUIDOverride(t *testing.T) {
	d := volume.Descriptor{GUIDPath: `\\?\Volume{guid}\`, DriveLetters: []string{"C:"}, ContentIndexing: false}
	snap := &config.Snapshot{Volumes: map[string]config.VolumeSection{
		`\\?\Volume{guid}\`: {ContentIndexing: true},
	}}
	require.True(t, volumeContentIndexing(snap, d))
}

func TestVolumeContentIndexingFallsBackToDriveLetter(t *testing.T) {
	d := volume.Descriptor{GUIDPath: `\\?\Volume{guid}\`, DriveLetters: []string{"D:"}, ContentIndexing: false}
	snap := &config.Snapshot{Volumes: map[string]config.VolumeSection{
		"D:": {ContentIndexing: true},
	}}
	require.True(t, volumeContentIndexing(snap, d))
}

func TestVolumeContentIndexingFallsBackToDescriptor(t *testing.T) {
	d := volume.Descriptor{GUIDPath: `\\?\Volume{guid}\`, ContentIndexing: true}
	snap := &config.Snapshot{Volumes: map[string]config.VolumeSection{}}
	require.True(t, volumeContentIndexing(snap, d))
}

func TestExcludePatternsForPrefersConfigOverride(t *testing.T) {
	d := volume.Descriptor{GUIDPath: `\\?\Volume{guid}\`, ExcludePaths: []string{`\$Recycle\.Bin`}}
	snap := &config.Snapshot{Volumes: map[string]config.VolumeSection{
		`\\?\Volume{guid}\`: {ExcludePaths: []string{`\.git\\`}},
	}}
	require.Equal(t, []string{`\.git\\`}, excludePatternsFor(snap, d))
}

func TestExcludePatternsForFallsBackToDescriptor(t *testing.T) {
	d := volume.Descriptor{GUIDPath: `\\?\Volume{guid}\`, ExcludePaths: []string{`\$Recycle\.Bin`}}
	snap := &config.Snapshot{Volumes: map[string]config.VolumeSection{}}
	require.Equal(t, []string{`\$Recycle\.Bin`}, excludePatternsFor(snap, d))
}

func TestConfigGetRecognizedKey(t *testing.T) {
	snap := config.Default()
	svc := &Service{cfg: config.NewStore("", snap)}

	v, err := svc.configGet("scheduler.idle_warm_seconds")
	require.NoError(t, err)
	require.Equal(t, "15", v)
}

func TestConfigGetUnrecognizedKey(t *testing.T) {
	svc := &Service{cfg: config.NewStore("", config.Default())}
	_, err := svc.configGet("nonsense.key")
	require.Error(t, err)
}
