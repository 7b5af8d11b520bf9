package form

import "testing"

func staged(name, mimeType string, size int64) StagedFile {
	return StagedFile{Name: name, MimeType: mimeType, Size: size, Data: make([]byte, 0)}
}

func TestStagingAddRemove(t *testing.T) {
	a := NewStagingArea(1000)
	a.Add(staged("a.pdf", "application/pdf", 10))
	a.Add(staged("b.pdf", "application/pdf", 20), staged("c.txt", "text/plain", 30))

	if a.Len() != 3 {
		t.Fatalf("Len = %d, want 3", a.Len())
	}

	a.Remove(1)
	files := a.Files()
	if len(files) != 2 || files[0].Name != "a.pdf" || files[1].Name != "c.txt" {
		t.Errorf("files after remove = %+v", files)
	}
}

func TestStagingRemoveOutOfRangeIsNoOp(t *testing.T) {
	a := NewStagingArea(1000)
	a.Add(staged("a.pdf", "application/pdf", 10))

	a.Remove(-1)
	a.Remove(5)
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestStagingDuplicateNamesAllowed(t *testing.T) {
	a := NewStagingArea(1000)
	a.Add(staged("same.pdf", "application/pdf", 10))
	a.Add(staged("same.pdf", "application/pdf", 10))
	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2; duplicates must not collapse", a.Len())
	}
}

func TestBudgetStates(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		want  BudgetState
	}{
		{"well under", 100, BudgetOK},
		{"at 80 percent", 800, BudgetOK},
		{"just under 80 percent", 799, BudgetOK},
		{"just over 80 percent", 801, BudgetWarn},
		{"at limit", 1000, BudgetWarn},
		{"over limit", 1001, BudgetOver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewStagingArea(1000)
			a.Add(staged("f", "application/pdf", tt.total))

			b := a.Budget()
			if b.State != tt.want {
				t.Errorf("Budget(%d/1000).State = %q, want %q", tt.total, b.State, tt.want)
			}
			if b.TotalBytes != tt.total || b.LimitBytes != 1000 {
				t.Errorf("Budget = %+v", b)
			}
		})
	}
}

func TestBudgetSums(t *testing.T) {
	a := NewStagingArea(1000)
	a.Add(staged("a", "", 400), staged("b", "", 500))
	if got := a.Budget().TotalBytes; got != 900 {
		t.Errorf("TotalBytes = %d, want 900", got)
	}

	a.Remove(0)
	if got := a.Budget().TotalBytes; got != 500 {
		t.Errorf("TotalBytes after remove = %d, want 500", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		want     FileKind
	}{
		{"pdf by mime", "doc.bin", "application/pdf", KindPDF},
		{"pdf by extension", "doc.PDF", "", KindPDF},
		{"jpeg", "photo.jpg", "image/jpeg", KindImage},
		{"png uppercase ext", "shot.PNG", "image/png", KindImage},
		{"webp", "pic.webp", "image/webp", KindImage},
		{"heic", "pic.heic", "image/heic", KindImage},
		{"svg not previewable", "logo.svg", "image/svg+xml", KindGeneric},
		{"docx", "report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", KindDocument},
		{"xlsx", "sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", KindSpreadsheet},
		{"pptx", "deck.pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation", KindSlides},
		{"plain text", "notes.txt", "text/plain", KindTextOrJSON},
		{"json", "data.json", "application/json", KindTextOrJSON},
		{"txt by extension alone", "notes.txt", "", KindTextOrJSON},
		{"unknown", "blob.xyz", "application/octet-stream", KindGeneric},
		{"no extension no mime", "LICENSE", "", KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.fileName, tt.mimeType); got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.fileName, tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{10 * 1024, "10 KB"},
		{200 * 1024, "200 KB"},
		{1024 * 1024, "1.0 MB"},
		{5*1024*1024 + 512*1024, "5.5 MB"},
		{20 * 1024 * 1024, "20 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestStagingClear(t *testing.T) {
	a := NewStagingArea(1000)
	a.Add(staged("a", "", 100))
	a.Clear()

	if a.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", a.Len())
	}
	if got := a.Budget().State; got != BudgetOK {
		t.Errorf("Budget.State after Clear = %q, want OK", got)
	}
}
