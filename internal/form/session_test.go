package form

import (
	"testing"
	"time"
)

func testStore(idleTTL time.Duration) *Store {
	return NewStore(StoreConfig{
		MaxTotalBytes: 1000,
		IdleTTL:       idleTTL,
		Defaults:      testDefaults(),
	}, &stubTransport{})
}

func TestStoreCreateAndGet(t *testing.T) {
	st := testStore(time.Hour)

	sess := st.Create()
	if sess.ID == "" {
		t.Fatal("session has no ID")
	}
	if !sess.WrapAsList() {
		t.Error("new session does not default to wrap-as-list")
	}

	got, ok := st.Get(sess.ID)
	if !ok || got != sess {
		t.Errorf("Get(%q) = (%v, %v)", sess.ID, got, ok)
	}

	if _, ok := st.Get("unknown"); ok {
		t.Error("Get(unknown) succeeded")
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	st := testStore(time.Hour)

	first, created := st.GetOrCreate("")
	if !created {
		t.Error("GetOrCreate with empty ID did not create")
	}

	again, created := st.GetOrCreate(first.ID)
	if created || again != first {
		t.Errorf("GetOrCreate(%q) = (%v, created=%v), want the existing session", first.ID, again, created)
	}

	_, created = st.GetOrCreate("stale-id")
	if !created {
		t.Error("GetOrCreate with a stale ID did not create a replacement")
	}
}

func TestStoreRemoveClosesPreview(t *testing.T) {
	st := testStore(time.Hour)
	sess := st.Create()

	pv := sess.Preview.Open(staged("a.pdf", "application/pdf", 10), KindPDF, "")
	st.Remove(sess.ID)

	if st.Len() != 0 {
		t.Errorf("Len = %d after Remove, want 0", st.Len())
	}
	if _, _, ok := sess.Preview.Resolve(pv.Token); ok {
		t.Error("preview token still resolves after session removal")
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	st := testStore(10 * time.Millisecond)

	idle := st.Create()
	pv := idle.Preview.Open(staged("a.pdf", "application/pdf", 10), KindPDF, "")

	time.Sleep(25 * time.Millisecond)
	fresh := st.Create()

	if n := st.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := st.Get(idle.ID); ok {
		t.Error("idle session survived the sweep")
	}
	if _, ok := st.Get(fresh.ID); !ok {
		t.Error("fresh session was swept")
	}
	if _, _, ok := idle.Preview.Resolve(pv.Token); ok {
		t.Error("swept session's preview token still resolves")
	}
}

func TestGetRefreshesIdleTimer(t *testing.T) {
	st := testStore(30 * time.Millisecond)
	sess := st.Create()

	// Keep touching the session past the original TTL.
	for i := 0; i < 3; i++ {
		time.Sleep(15 * time.Millisecond)
		if _, ok := st.Get(sess.ID); !ok {
			t.Fatal("session vanished while being touched")
		}
	}

	if n := st.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d, want 0 for an active session", n)
	}
}

func TestSessionClear(t *testing.T) {
	st := testStore(time.Hour)
	sess := st.Create()

	sess.Fields.Append()
	sess.Files.Add(staged("a.pdf", "application/pdf", 10))
	pv := sess.Preview.Open(staged("a.pdf", "application/pdf", 10), KindPDF, "")
	sess.SetWrapAsList(false)

	sess.Clear()

	if sess.Fields.Len() != 0 {
		t.Error("fields survived Clear")
	}
	if sess.Files.Len() != 0 {
		t.Error("files survived Clear")
	}
	if _, _, ok := sess.Preview.Resolve(pv.Token); ok {
		t.Error("preview token survived Clear")
	}
	if sess.WrapAsList() {
		t.Error("wrap setting was reset by Clear; it must survive")
	}
}
