package policy

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforce(t *testing.T) {
	f := New(Options{})

	tests := []struct {
		name  string
		raw   string
		want  string
		flags []string
	}{
		{
			name:  "meetup replaced",
			raw:   "Wollen wir uns morgen auf einen Kaffee treffen?",
			want:  MeetupDecline,
			flags: []string{FlagHasMeetup},
		},
		{
			name:  "messenger replaced",
			raw:   "Schreib mir auf WhatsApp!",
			want:  ContactDecline,
			flags: []string{FlagHasContacts},
		},
		{
			name:  "phone number replaced",
			raw:   "Meine Nummer ist +49 171 2345678",
			want:  ContactDecline,
			flags: []string{FlagHasContacts},
		},
		{
			name:  "email address replaced",
			raw:   "Schreib an anna.b@web.de",
			want:  ContactDecline,
			flags: []string{FlagHasContacts},
		},
		{
			name:  "handle replaced",
			raw:   "Folg mir @sommer_anna",
			want:  ContactDecline,
			flags: []string{FlagHasContacts},
		},
		{
			name:  "sharp s",
			raw:   "Das ist ein großer Spaß",
			want:  "Das ist ein grosser Spass.",
			flags: []string{},
		},
		{
			name:  "dash",
			raw:   "Ich mag Musik – vor allem Jazz",
			want:  "Ich mag Musik vor allem Jazz.",
			flags: []string{FlagDashRemoved},
		},
		{
			name:  "du form mid sentence",
			raw:   "Wie geht es Ihnen heute",
			want:  "Wie geht es dir heute.",
			flags: []string{FlagUsedDuForm},
		},
		{
			name:  "du form sentence start",
			raw:   "Ihr Lächeln ist schön",
			want:  "Dein Lächeln ist schön.",
			flags: []string{FlagUsedDuForm},
		},
		{
			name:  "punctuation",
			raw:   "Wirklich??  Das ist toll !!!",
			want:  "Wirklich? Das ist toll!",
			flags: []string{},
		},
		{
			name:  "link",
			raw:   "Schau mal hier https://example.com/x",
			want:  "Schau mal hier " + LinkPlaceholder,
			flags: []string{FlagHasLink},
		},
		{
			name:  "farewell residue cleaned",
			raw:   "Das war schön, bis bald!",
			want:  "Das war schön!",
			flags: []string{FlagHadFarewell},
		},
		{
			name:  "farewell only",
			raw:   "Gute Nacht",
			want:  EmptyFallback,
			flags: []string{FlagEmptyFallback, FlagHadFarewell},
		},
		{
			name:  "empty",
			raw:   "",
			want:  EmptyFallback,
			flags: []string{FlagEmptyFallback},
		},
		{
			name:  "punctuation only",
			raw:   "!!! ...",
			want:  EmptyFallback,
			flags: []string{FlagEmptyFallback},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Enforce(tt.raw)
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, tt.flags, got.Flags.Fired())
			assert.False(t, got.Blocked)
			assert.Equal(t, 1, got.Passes)
		})
	}
}

func TestEnforce_HardBlock(t *testing.T) {
	got := New(Options{}).Enforce("Ich will meine Stiefschwester ficken, treffen wir uns?")
	assert.Equal(t, "", got.Text)
	assert.True(t, got.Blocked)
	assert.Equal(t, []string{FlagIncestBlock}, got.Flags.Fired())
}

func TestEnforce_FamilyWithoutExplicitIsNotBlocked(t *testing.T) {
	got := New(Options{}).Enforce("Meine Schwester kommt heute zu Besuch")
	assert.False(t, got.Blocked)
	assert.Equal(t, "Meine Schwester kommt heute zu Besuch.", got.Text)
}

func TestEnforce_TruncatesAtSentence(t *testing.T) {
	raw := strings.Repeat("Das ist ein Satz. ", 60)
	got := New(Options{}).Enforce(raw)

	require.True(t, got.Flags[FlagTooLong])
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), 500)
	assert.True(t, strings.HasSuffix(got.Text, "Satz."))
}

func TestEnforce_HardTruncate(t *testing.T) {
	got := New(Options{}).Enforce(strings.Repeat("a", 600))

	require.True(t, got.Flags[FlagTooLong])
	assert.Equal(t, strings.Repeat("a", 499)+".", got.Text)
}

func TestEnforce_CustomCap(t *testing.T) {
	got := New(Options{MaxLength: 60}).Enforce("Heute war ein wirklich langer Tag für mich und ich bin jetzt sehr müde geworden")
	assert.True(t, got.Flags[FlagTooLong])
	assert.Equal(t, "Heute war ein wirklich langer Tag für mich und ich bin.", got.Text)
}

func TestEnforce_HardTruncateKeepsWholeWords(t *testing.T) {
	f := New(Options{})
	got := f.Enforce(strings.Repeat("x", 495) + " Siebzehn")
	assert.Equal(t, strings.Repeat("x", 495)+".", got.Text)
	assert.Equal(t, got.Text, f.Enforce(got.Text).Text)
}

func TestNew_CapNeverBelowFallback(t *testing.T) {
	f := New(Options{MaxLength: 40})
	assert.Equal(t, utf8.RuneCountInString(EmptyFallback), f.MaxLength())

	got := f.Enforce("?")
	assert.Equal(t, EmptyFallback, got.Text)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), f.MaxLength())
	assert.Equal(t, DefaultMaxLength, New(Options{}).MaxLength())
}

func TestEnforce_LinkGluedToPronoun(t *testing.T) {
	f := New(Options{})
	got := f.Enforce("Klicken Siehttps://a.b/c jetzt")
	assert.Equal(t, "Klicken "+LinkPlaceholder+" jetzt.", got.Text)
	assert.True(t, got.Flags[FlagHasLink])
	assert.Equal(t, got.Text, f.Enforce(got.Text).Text)
}

func TestEnforce_ShortAtTokenIsNotHandle(t *testing.T) {
	f := New(Options{})
	got := f.Enforce("a @bc")
	assert.Equal(t, "a @bc.", got.Text)
	assert.False(t, got.Flags[FlagHasContacts])
	assert.Equal(t, got.Text, f.Enforce(got.Text).Text)

	assert.Equal(t, ContactDecline, f.Enforce(".@sommer").Text)
}

var propertyCorpus = []string{
	"",
	"Hallo",
	"Das ist ein großer Spaß",
	"Wollen wir uns morgen auf einen Kaffee treffen?",
	"Hast du Telegram oder Insta? Du bist so süß!",
	"Ruf mich an: 0171-2345678",
	"Mail an test.user@example.org — ich warte!",
	"Wann und wo sehen wir uns?",
	"Wie geht es Ihnen?? Ich hoffe gut - bis später!",
	"Ihr Lächeln ist schön. Sie sind toll",
	"Schau mal www.example.com/a-b und sag was",
	"Tschüß, mach's gut!",
	"  ,,, hey ;; du !! ",
	"Okay, bis bald!",
	"Straße-Straße—Straße–Straße",
	strings.Repeat("Straße-", 100),
	strings.Repeat("Das ist ein Satz. ", 60),
	strings.Repeat("ab ", 300),
	strings.Repeat("wirklich ", 80) + "bis dann",
	":Ihr…Siehttps://a.b/c-d …",
	"Siehttps://a.b/c",
	"a @bc",
	".@abc",
	"x www",
	"schau auf www .beispiel.de",
	strings.Repeat("x", 495) + " Siebzehn",
	strings.Repeat("ja ", 165) + "wahrscheinlich",
}

func TestEnforce_Properties(t *testing.T) {
	f := New(Options{})
	for _, raw := range propertyCorpus {
		got := f.Enforce(raw)
		require.False(t, got.Blocked, raw)

		lower := strings.ToLower(got.Text)
		assert.False(t, hasMeetup(lower), "meetup residue in %q", got.Text)
		assert.False(t, hasContact(lower), "contact residue in %q", got.Text)
		assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), 500, raw)
		assert.False(t, strings.ContainsAny(got.Text, "ßẞ-–—"), "forbidden rune in %q", got.Text)
		assert.NotEmpty(t, got.Text)

		again := f.Enforce(got.Text)
		assert.Equal(t, got.Text, again.Text, "not idempotent for %q", raw)
	}
}

func TestFlags_Fired(t *testing.T) {
	f := Flags{"b": true, "a": true, "c": false}
	assert.Equal(t, []string{"a", "b"}, f.Fired())
}

func TestCleanPunctuation_Idempotent(t *testing.T) {
	for _, s := range []string{"a ! ! b", "!!a", "x ,. y", "ok ...", "  "} {
		once := cleanPunctuation(s)
		assert.Equal(t, once, cleanPunctuation(once), s)
	}
}
