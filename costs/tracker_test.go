package costs

import (
	"strings"
	"sync"
	"testing"
)

func TestNewDefaultsCurrencyToUSD(t *testing.T) {
	tr := New("run_1", "")
	if tr.Currency != "USD" {
		t.Fatalf("Currency = %q, want USD", tr.Currency)
	}
}

func TestRecordCallComputesCostFromDefaultPricing(t *testing.T) {
	tr := New("run_1", "USD")

	cost := tr.RecordCall("gpt-4o-mini", "n1", 1_000_000, 1_000_000)
	want := 0.15 + 0.60
	if cost != want {
		t.Fatalf("cost = %v, want %v", cost, want)
	}
	if tr.TotalCost() != want {
		t.Fatalf("TotalCost = %v, want %v", tr.TotalCost(), want)
	}
}

func TestRecordCallUnknownModelCostsZero(t *testing.T) {
	tr := New("run_1", "USD")
	cost := tr.RecordCall("some-future-model", "n1", 1000, 1000)
	if cost != 0 {
		t.Fatalf("cost for unpriced model = %v, want 0", cost)
	}
}

func TestSetPricingOverridesDefault(t *testing.T) {
	tr := New("run_1", "USD")
	tr.SetPricing("gpt-4o-mini", 1.0, 2.0)

	cost := tr.RecordCall("gpt-4o-mini", "n1", 1_000_000, 1_000_000)
	if cost != 3.0 {
		t.Fatalf("cost = %v, want 3.0 after SetPricing override", cost)
	}
}

func TestCostByNodeAndCostByModelAccumulate(t *testing.T) {
	tr := New("run_1", "USD")
	tr.RecordCall("gpt-4o-mini", "n1", 1_000_000, 0)
	tr.RecordCall("gpt-4o-mini", "n2", 1_000_000, 0)
	tr.RecordCall("claude-3-haiku-20240307", "n1", 1_000_000, 0)

	byNode := tr.CostByNode()
	if len(byNode) != 2 {
		t.Fatalf("CostByNode has %d entries, want 2", len(byNode))
	}
	wantN1 := 0.15 + 0.25
	if byNode["n1"] != wantN1 {
		t.Fatalf("CostByNode[n1] = %v, want %v", byNode["n1"], wantN1)
	}

	byModel := tr.CostByModel()
	if byModel["gpt-4o-mini"] != 0.30 {
		t.Fatalf("CostByModel[gpt-4o-mini] = %v, want 0.30", byModel["gpt-4o-mini"])
	}
}

func TestCostByNodeReturnsACopy(t *testing.T) {
	tr := New("run_1", "USD")
	tr.RecordCall("gpt-4o-mini", "n1", 1000, 0)

	byNode := tr.CostByNode()
	byNode["n1"] = 999

	if got := tr.CostByNode()["n1"]; got == 999 {
		t.Fatal("mutating the returned map leaked into the Tracker's internal state")
	}
}

func TestTokenUsageAccumulates(t *testing.T) {
	tr := New("run_1", "USD")
	tr.RecordCall("gpt-4o-mini", "n1", 100, 200)
	tr.RecordCall("gpt-4o-mini", "n2", 300, 400)

	in, out := tr.TokenUsage()
	if in != 400 || out != 600 {
		t.Fatalf("TokenUsage = (%d, %d), want (400, 600)", in, out)
	}
}

func TestCallsReturnsChronologicalCopy(t *testing.T) {
	tr := New("run_1", "USD")
	tr.RecordCall("gpt-4o-mini", "n1", 1, 1)
	tr.RecordCall("gpt-4o-mini", "n2", 2, 2)

	calls := tr.Calls()
	if len(calls) != 2 {
		t.Fatalf("len(Calls()) = %d, want 2", len(calls))
	}
	if calls[0].NodeID != "n1" || calls[1].NodeID != "n2" {
		t.Fatalf("Calls() not in chronological order: %+v", calls)
	}

	calls[0].NodeID = "mutated"
	if tr.Calls()[0].NodeID == "mutated" {
		t.Fatal("mutating the returned slice leaked into the Tracker's internal state")
	}
}

func TestStringContainsRunIDCallCountAndTotal(t *testing.T) {
	tr := New("run_7", "USD")
	tr.RecordCall("gpt-4o-mini", "n1", 1_000_000, 0)

	s := tr.String()
	if !strings.Contains(s, "run_7") || !strings.Contains(s, "calls: 1") || !strings.Contains(s, "total: $0.1500") {
		t.Fatalf("String() = %q, missing run id, call count or total", s)
	}
}

func TestRecordCallConcurrentUseIsRaceFree(t *testing.T) {
	tr := New("run_1", "USD")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.RecordCall("gpt-4o-mini", "n1", 10, 10)
		}(i)
	}
	wg.Wait()

	if got := len(tr.Calls()); got != 32 {
		t.Fatalf("recorded %d calls, want 32", got)
	}
}
