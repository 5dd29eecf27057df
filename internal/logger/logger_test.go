// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	e := FromContext(context.Background())
	require.NotNil(t, e)
	assert.Equal(t, L.Logger, e.Logger)
}

func TestWithField_Propagates(t *testing.T) {
	ctx := WithField(context.Background(), "run_id", "abc")
	ctx = WithField(ctx, "theme_id", 7)

	e := G(ctx)
	assert.Equal(t, "abc", e.Data["run_id"])
	assert.Equal(t, 7, e.Data["theme_id"])
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		_ = Configure("info", "text")
		SetOutput(logrus.StandardLogger().Out)
	})

	require.NoError(t, Configure("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	L.WithField("k", "v").Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "v", line["k"])
	assert.Contains(t, line, "timestamp")
}

func TestConfigure_BadLevel(t *testing.T) {
	assert.Error(t, Configure("loud", "text"))
}
