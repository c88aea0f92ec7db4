package agent

import (
	"os"
	"testing"

	"github.com/Kelvintronic/inhabited/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	os.Exit(m.Run())
}
