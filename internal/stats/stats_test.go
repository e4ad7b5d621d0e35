package stats

import "testing"

func TestTransferTotals(t *testing.T) {
	tr := NewTransfer()
	tr.RecordDownload(100)
	tr.RecordDownload(50)
	tr.RecordUpload(10)

	down, up := tr.Totals()
	if down != 150 {
		t.Fatalf("got down=%d, want 150", down)
	}
	if up != 10 {
		t.Fatalf("got up=%d, want 10", up)
	}
}

func TestSpeedRateAfterTick(t *testing.T) {
	s := NewSpeed()
	s.Update(1000)
	s.Tick()
	if s.Rate() <= 0 {
		t.Fatal("expected positive rate after update+tick")
	}
}
