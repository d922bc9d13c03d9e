package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

type fakeQuestion struct {
	Stem    string
	Options []string
	Correct int
	Topic   string
	Marks   int
	Type    string
}

func questionJSON(qs ...fakeQuestion) json.RawMessage {
	items := make([]string, len(qs))
	for i, q := range qs {
		opts, _ := json.Marshal(q.Options)
		items[i] = fmt.Sprintf(
			`{"stem":%q,"options":%s,"correct_answer_index":%d,"explanation":"because","topic":%q,"marks":%d,"type":%q}`,
			q.Stem, opts, q.Correct, q.Topic, q.Marks, q.Type)
	}
	return json.RawMessage(`{"questions":[` + strings.Join(items, ",") + `]}`)
}

func mcqJSON(stem, topic string) fakeQuestion {
	return fakeQuestion{Stem: stem, Options: []string{"a", "b", "c", "d"}, Correct: 2, Topic: topic, Marks: 1, Type: "Multiple Choice"}
}

func tfJSON(stem, topic string) fakeQuestion {
	return fakeQuestion{Stem: stem, Options: []string{"True", "False"}, Correct: 1, Topic: topic, Marks: 1, Type: "True/False"}
}

func pdfDoc() *Document {
	return &Document{Name: "chapter1.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4 fake")}
}
