package watchlist

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startFakeSmtp(t testing.TB) {
	if os.Getenv("COURSEWATCH_DOCKER_TESTS") != "1" {
		t.Skip("set COURSEWATCH_DOCKER_TESTS=1 to run tests that need docker")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	smtp, err := testcontainers.GenericContainer(
		context.Background(),
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025:1025", "1080:1080"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := smtp.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	})
}

func TestEmailNotifier(t *testing.T) {
	startFakeSmtp(t)

	notifier := NewEmailNotifier(SmtpConfig{
		Server:       "localhost",
		Port:         1025,
		EmailAddress: "alice@email.com",
		Password:     "default",
		To:           []string{"bob@email.com"},
	})
	err := notifier.Notify(context.Background(), Change{
		Term:     "202510",
		CRN:      "10001",
		Title:    "Intro to Programming - 10001 - CSC 101 - 01",
		Changed:  true,
		Previous: Snapshot{SeatsRemaining: sql.NullInt64{Int64: 1, Valid: true}},
		Current:  Snapshot{SeatsRemaining: sql.NullInt64{Int64: 0, Valid: true}},
	})
	require.NoError(t, err)

	res, err := resty.New().R().Get("http://127.0.0.1:1080/messages/1.plain")
	require.NoError(t, err)
	require.Contains(t, res.String(), "seats remaining 1 -> 0")
	require.Contains(t, res.String(), "CRN: 10001")
}
