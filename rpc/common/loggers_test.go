package common_test

import (
	"github.com/ValentinKolb/dGrid/lib/store/lstore"
	"github.com/ValentinKolb/dGrid/rpc/client"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/server"
	"github.com/ValentinKolb/dGrid/rpc/transport/base"
	"github.com/ValentinKolb/dGrid/rpc/transport/conn"
	"github.com/lni/dragonboat/v4/logger"
	"slices"
	"testing"
)

// TestLoggersMatchPackages checks that InitLoggers configures exactly the
// loggers the packages write to
func TestLoggersMatchPackages(t *testing.T) {
	packages := map[string]logger.ILogger{
		"transport/conn": conn.Logger,
		"transport/rpc":  base.Logger,
		"rpc":            client.Logger,
		"server":         server.Logger,
		"store":          lstore.Logger,
	}

	for name, pkgLogger := range packages {
		if !slices.Contains(common.Loggers, name) {
			t.Errorf("Logger %q is not configured by InitLoggers", name)
		}
		if logger.GetLogger(name) != pkgLogger {
			t.Errorf("Package logger %q is not the registered logger of that name", name)
		}
	}

	for _, name := range common.Loggers {
		if _, ok := packages[name]; !ok {
			t.Errorf("InitLoggers configures %q, which no package uses", name)
		}
	}
}
