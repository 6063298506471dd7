package service_test

import (
	"os"
	"testing"

	"github.com/sunny07-bar/website-sub000/db"
)

func TestMain(m *testing.M) {
	os.Exit(db.RunWithPostgres(m))
}
