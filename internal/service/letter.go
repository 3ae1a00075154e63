package service

import (
	"regexp"
	"strconv"
	"strings"
)

// Confidence values used when the model does not state one.
const (
	TemplateConfidence = 0.4
	DefaultConfidence  = 0.6

	templateCitations = 3
	maxCitations      = 5
)

const systemPrompt = "أنت مساعد قانوني سعودي مختص في مخالفات المرور.\n" +
	"اكتب مسودات عربية رسمية موجزة، مع الاستشهاد بمقتطفات من المراجع المعطاة فقط.\n" +
	"لا تفترض معلومات غير موجودة. إن كانت المراجع غير كافية، اذكر ذلك صراحة.\n"

const letterInstructions = "اكتب مسودة خطاب اعتراض موجه إلى الجهة المختصة، باللهجة الرسمية السعودية،\n" +
	"تتضمن: (١) بيانات صاحب الطلب، (٢) ملخص الواقعة، (٣) أسانيد نظامية مختصرة مع اقتباس المراجع، (٤) طلب الإلغاء أو المراجعة، (٥) قائمة مرفقات.\n" +
	"أعد أيضًا سطرين يوضحان درجة الثقة (0-1) وأسبابها."

// confidenceMarker identifies the line carrying the model's confidence.
const confidenceMarker = "الثقة"

var confidencePattern = regexp.MustCompile(`[01](?:\.[0-9]+)?`)

// caseDescription renders the request fields as labelled Arabic lines, skipping empty ones.
func caseDescription(req DraftRequest) string {
	fields := []struct {
		label string
		value string
	}{
		{"رقم اللوحة", req.PlateNumber},
		{"رمز المخالفة", req.ViolationCode},
		{"وصف المخالفة", req.ViolationDesc},
		{"الموقع", req.Location},
		{"التاريخ", req.Date},
		{"تفاصيل إضافية", req.ExtraContext},
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		lines = append(lines, f.label+": "+f.value)
	}
	return strings.Join(lines, "\n")
}

// referenceContext renders references as a bulleted block.
func referenceContext(refs []string) string {
	items := make([]string, len(refs))
	for i, ref := range refs {
		items[i] = "- " + ref
	}
	return strings.Join(items, "\n\n")
}

// userPrompt builds the user message sent to the model.
func userPrompt(req DraftRequest, refs []string) string {
	var b strings.Builder
	b.WriteString("المراجع:\n")
	b.WriteString(referenceContext(refs))
	b.WriteString("\n\nبيانات القضية:\n")
	b.WriteString(caseDescription(req))
	b.WriteString("\n\n")
	b.WriteString(letterInstructions)
	return b.String()
}

// templateLetter builds a draft without a model, quoting the references verbatim.
func templateLetter(req DraftRequest, refs []string) string {
	var b strings.Builder
	b.WriteString("سعادة الجهة المختصة،\n\n")
	b.WriteString("الموضوع: طلب الاعتراض على مخالفة مرورية\n\n")
	b.WriteString("أفيدكم بأنني أتقدم بطلب الاعتراض على المخالفة الموضحة أدناه:\n\n")
	b.WriteString(caseDescription(req))
	b.WriteString("\n\nملخص الواقعة: \n")
	b.WriteString("تم ضبط المخالفة المشار إليها، وأبين بأن هناك أسبابًا تستدعي إعادة النظر، استنادًا إلى المقتطفات التالية من المراجع:\n\n")
	b.WriteString(referenceContext(refs))
	b.WriteString("\n\nوبناءً عليه أطلب من جهتكم الموقرة مراجعة المخالفة واتخاذ ما يلزم.\n\n")
	b.WriteString("المرفقات: صور/مستندات داعمة.\n\n")
	b.WriteString("درجة الثقة: 0.4 (مُولّد دون نموذج لغوي بسبب تعذّر الاتصال).")
	return b.String()
}

// templateCitationsOf returns the citations attached to a template draft.
func templateCitationsOf(refs []string) []string {
	n := min(len(refs), templateCitations)
	out := make([]string, n)
	copy(out, refs[:n])
	return out
}

// parseCitations collects reply lines that look like quoted references:
// lines starting with "[" or "- ", with leading and trailing dashes and spaces removed.
func parseCitations(reply string) []string {
	citations := []string{}
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		citations = append(citations, strings.Trim(line, "- "))
		if len(citations) == maxCitations {
			break
		}
	}
	return citations
}

// parseConfidence reads the first number in [0,1] from the first line
// mentioning confidence. Returns DefaultConfidence when absent.
func parseConfidence(reply string) float64 {
	for _, line := range strings.Split(reply, "\n") {
		if !strings.Contains(line, confidenceMarker) {
			continue
		}
		match := confidencePattern.FindString(line)
		if match == "" {
			return DefaultConfidence
		}
		value, err := strconv.ParseFloat(match, 64)
		if err != nil || value > 1 {
			return DefaultConfidence
		}
		return value
	}
	return DefaultConfidence
}
