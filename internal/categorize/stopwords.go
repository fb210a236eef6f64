package categorize

// spanishStopWords are removed before building the vocabulary.
var spanishStopWords = []string{
	"de", "la", "que", "el", "en", "y", "a", "los", "del", "se", "las", "por",
	"un", "para", "con", "no", "una", "su", "al", "lo", "como", "más", "pero",
	"sus", "le", "ya", "o", "este", "sí", "porque", "esta", "entre", "cuando",
	"muy", "sin", "sobre", "también", "me", "hasta", "hay", "donde", "quien",
	"desde", "todo", "nos", "durante", "todos", "uno", "les", "ni", "contra",
	"otros", "ese", "eso", "ante", "ellos", "e", "esto", "mí", "antes",
	"qué", "unos", "yo", "otro", "otras", "otra", "él", "ella",
	"ellas", "usted", "ustedes", "mi", "tu", "te", "ti",
}

// StopWords returns a copy of the built in Spanish stop-word list.
func StopWords() []string {
	out := make([]string, len(spanishStopWords))
	copy(out, spanishStopWords)
	return out
}

func stopSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
