package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitWithOutputTagsApp(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput("hostly-test", "debug", &buf)
	t.Cleanup(func() { InitWithOutput("hostly-test", "info", os.Stdout) })

	Logger.WithField("property_id", "p1").Debug("hello")

	out := buf.String()
	assert.Contains(t, out, "app=hostly-test")
	assert.Contains(t, out, "property_id=p1")
	assert.Contains(t, out, "hello")
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
}

func TestInitWithOutputFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput("hostly-test", "chatty", &buf)
	t.Cleanup(func() { InitWithOutput("hostly-test", "info", os.Stdout) })

	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
}
