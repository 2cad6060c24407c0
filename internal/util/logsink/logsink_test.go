//go:build unit

/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logsink_test

import (
	"bytes"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandremahdhaoui/virtpower/internal/util/logsink"
)

func TestDial(t *testing.T) {
	t.Run("connects to a reachable collector", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()

		accepted := make(chan net.Conn, 1)
		go func() {
			conn, err := listener.Accept()
			if err == nil {
				accepted <- conn
			}
		}()

		sink, err := logsink.Dial(logsink.Config{
			Address:  listener.Addr().String(),
			Attempts: 1,
		})
		require.NoError(t, err)
		require.NotNil(t, sink)
		defer sink.Close()

		_, err = sink.Write([]byte(`{"msg":"hello"}` + "\n"))
		assert.NoError(t, err)

		(<-accepted).Close()
	})

	t.Run("unreachable collector is non-fatal", func(t *testing.T) {
		// Grab a port that nothing listens on.
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		sink, err := logsink.Dial(logsink.Config{
			Address:  addr,
			Attempts: 1,
		})

		assert.Error(t, err)
		assert.Nil(t, sink)
	})

	t.Run("final attempt is reported once at error level", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		buf := bytes.Buffer{}
		previous := slog.Default()
		slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
		t.Cleanup(func() { slog.SetDefault(previous) })

		sink, err := logsink.Dial(logsink.Config{
			Address:  addr,
			Attempts: 1,
		})
		require.Error(t, err)
		require.Nil(t, sink)

		assert.NotContains(t, buf.String(), "retrying",
			"the last failed attempt must not log an intermediate retry line")
		assert.Contains(t, buf.String(), "giving up on log sink")
	})

	t.Run("zero attempts means a single try", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		// With a fixed 5s delay between attempts, more than one try would
		// make this test visibly slow.
		sink, err := logsink.Dial(logsink.Config{
			Address:  addr,
			Attempts: 0,
		})

		assert.Error(t, err)
		assert.Nil(t, sink)
	})
}
