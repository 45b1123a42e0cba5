package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fmops/bedrock-usage-analyzer/cmd/analyzer/config"
	mock_client "github.com/fmops/bedrock-usage-analyzer/pkg/aws/client/mocks"
	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
)

func newCaptureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, nil)), buf
}

func TestCheckRegion(t *testing.T) {
	dir := t.TempDir()
	regions := "regions:\n  - us-east-1\n  - eu-west-1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regions.yml"), []byte(regions), 0o644))

	tests := map[string]struct {
		region  string
		wantLog string
	}{
		"known region stays quiet": {
			region: "us-east-1",
		},
		"unknown region warns": {
			region:  "ap-southeast-2",
			wantLog: "configured region not present in region metadata",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			log, buf := newCaptureLogger()
			checkRegion(context.Background(), log, config.Config{Region: tt.region, MetadataDir: dir})
			if tt.wantLog == "" {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), tt.wantLog)
			}
		})
	}
}

func TestCheckRegionMissingMetadata(t *testing.T) {
	log, buf := newCaptureLogger()
	checkRegion(context.Background(), log, config.Config{Region: "us-east-1", MetadataDir: t.TempDir()})
	assert.Contains(t, buf.String(), "region metadata unavailable")
}

func TestValidateProfiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Base invocations skip resolution entirely.
	mc := mock_client.NewMockClient(ctrl)
	mc.EXPECT().ResolveInferenceProfile(gomock.Any(), "us.model-a").Return(nil, nil)
	mc.EXPECT().ResolveInferenceProfile(gomock.Any(), "global.model-b").Return(nil, nil)

	log, buf := newCaptureLogger()
	validateProfiles(context.Background(), log, mc, []bedrock.ModelSpec{
		{ModelID: "model-base", ProfilePrefix: ""},
		{ModelID: "model-a", ProfilePrefix: "us"},
		{ModelID: "model-b", ProfilePrefix: "global"},
	})

	// Cross-region prefixes get the region-scoped wording, global ones do not.
	assert.Contains(t, buf.String(), "inference profile not found in this region")
	assert.Contains(t, buf.String(), "profile_id=us.model-a")
	assert.Contains(t, buf.String(), "profile_id=global.model-b")
}
