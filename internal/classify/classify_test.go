package classify_test

import (
	"testing"
	"time"

	"mediasort/internal/classify"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestClassifyLiterals(t *testing.T) {
	c := classify.New(classify.Options{DayFirst: true, Now: fixedNow})
	cases := []struct {
		name  string
		year  int
		month int
		rule  string
		ok    bool
	}{
		{"vacation_2024-03-15_sunset.jpg", 2024, 3, classify.RuleYMD, true},
		{"IMG_20240315_120000.jpg", 2024, 3, classify.RuleYMD, true},
		{"backup_03-15-2024.zip", 2024, 3, classify.RuleMDY, true},
		{"random_file.txt", 0, 0, "", false},
		{"birthday_15-03-2024.mp4", 2024, 3, classify.RuleDMY, true},
		{"trip_2019_07.jpg", 2019, 7, classify.RulePartial, true},
		{"summer_08_2021.mov", 2021, 8, classify.RulePartial, true},
		{"IMG_２０２４０３１５.jpg", 2024, 3, classify.RuleYMD, true},
		{"scan_1985-06-01.jpg", 0, 0, "", false},
		{"future_2031-01-01.jpg", 0, 0, "", false},
		{"bad_2024-13-01.jpg", 0, 0, "", false},
		{"counter_12345678.jpg", 0, 0, "", false},
	}
	for _, tc := range cases {
		got := c.Classify(tc.name)
		if got.OK != tc.ok {
			t.Fatalf("%s: ok=%v want %v (%v)", tc.name, got.OK, tc.ok, got)
		}
		if !tc.ok {
			continue
		}
		if got.Year != tc.year || got.Month != tc.month || got.Rule != tc.rule {
			t.Fatalf("%s: got %d/%02d (%s) want %d/%02d (%s)", tc.name, got.Year, got.Month, got.Rule, tc.year, tc.month, tc.rule)
		}
	}
}

func TestClassifyTriesEveryOccurrence(t *testing.T) {
	c := classify.New(classify.Options{DayFirst: true, Now: fixedNow})
	// the first ymd-shaped run is out of range, the second is valid
	got := c.Classify("export_1111-11-11_2022-05-09.jpg")
	if !got.OK || got.Year != 2022 || got.Month != 5 {
		t.Fatalf("expected 2022/05, got %v", got)
	}
}

func TestClassifyTieBreakPolicy(t *testing.T) {
	name := "party_03-04-2024.jpg"

	dayFirst := classify.New(classify.Options{DayFirst: true, Now: fixedNow}).Classify(name)
	if !dayFirst.OK || dayFirst.Month != 4 || dayFirst.Rule != classify.RuleDMY {
		t.Fatalf("day-first: expected April via dmy, got %v", dayFirst)
	}

	monthFirst := classify.New(classify.Options{DayFirst: false, Now: fixedNow}).Classify(name)
	if !monthFirst.OK || monthFirst.Month != 3 || monthFirst.Rule != classify.RuleMDY {
		t.Fatalf("month-first: expected March via mdy, got %v", monthFirst)
	}

	// unambiguous names classify the same under both policies
	for _, dayFirstPolicy := range []bool{true, false} {
		c := classify.New(classify.Options{DayFirst: dayFirstPolicy, Now: fixedNow})
		if got := c.Classify("backup_03-15-2024.zip"); got.Month != 3 {
			t.Fatalf("dayFirst=%v: expected March, got %v", dayFirstPolicy, got)
		}
		if got := c.Classify("birthday_15-03-2024.mp4"); got.Month != 3 {
			t.Fatalf("dayFirst=%v: expected March, got %v", dayFirstPolicy, got)
		}
	}
}

func TestClassifyUsesInjectedClock(t *testing.T) {
	name := "clip_2025-02-01.mp4"
	early := classify.New(classify.Options{Now: func() time.Time { return time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC) }})
	if got := early.Classify(name); got.OK {
		t.Fatalf("2025 must be rejected in 2024, got %v", got)
	}
	if got := classify.New(classify.Options{Now: fixedNow}).Classify(name); !got.OK {
		t.Fatal("2025 must be accepted in 2025")
	}
}

func TestFromTime(t *testing.T) {
	c := classify.New(classify.Options{Now: fixedNow})
	got := c.FromTime(time.Date(2020, 11, 3, 0, 0, 0, 0, time.UTC), classify.SourceMtime)
	if !got.OK || got.Dir() != "2020/11" || got.Rule != classify.SourceMtime {
		t.Fatalf("unexpected fallback result %v", got)
	}
	if c.FromTime(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), classify.SourceMtime).OK {
		t.Fatal("epoch mtime must be rejected")
	}
	if c.FromTime(time.Time{}, classify.SourceExif).OK {
		t.Fatal("zero time must be rejected")
	}
}

func TestResultString(t *testing.T) {
	if got := (classify.Result{}).String(); got != "unclassified" {
		t.Fatalf("unexpected %q", got)
	}
	if got := (classify.Result{Year: 2024, Month: 3, Rule: "ymd", OK: true}).String(); got != "2024/03 (ymd)" {
		t.Fatalf("unexpected %q", got)
	}
}
