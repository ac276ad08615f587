package serverlog

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesValidLevel(t *testing.T) {
	log := New("debug", "text")
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	log := New("not-a-level", "text")
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info fallback", log.GetLevel())
	}
}

func TestNewFormatSelection(t *testing.T) {
	if _, ok := New("info", "json").Formatter.(*logrus.JSONFormatter); !ok {
		t.Error("format json should select JSONFormatter")
	}
	if _, ok := New("info", "text").Formatter.(*logrus.TextFormatter); !ok {
		t.Error("format text should select TextFormatter")
	}
	if _, ok := New("info", "bogus").Formatter.(*logrus.TextFormatter); !ok {
		t.Error("unrecognized format should fall back to TextFormatter")
	}
}

func TestConnFields(t *testing.T) {
	fields := ConnFields("c-1", "127.0.0.1:9000")
	if fields["conn_id"] != "c-1" || fields["remote_addr"] != "127.0.0.1:9000" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestRequestFields(t *testing.T) {
	fields := RequestFields("c-1", "127.0.0.1:9000", "GET", "/index.html", 200, 12)
	want := logrus.Fields{
		"conn_id":     "c-1",
		"remote_addr": "127.0.0.1:9000",
		"method":      "GET",
		"url":         "/index.html",
		"status":      200,
		"duration_ms": int64(12),
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %v, want %v", k, fields[k], v)
		}
	}
}
