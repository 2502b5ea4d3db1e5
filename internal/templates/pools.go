package templates

import "github.com/stellarlinkco/replypilot/internal/intent"

// Sadness has no classifier rule by default; packs and custom rule lists may
// route to it.
const Sadness intent.Intent = "sadness"

// Bodies avoid sharp s, dashes and formal address so the compliance filter
// leaves them unchanged.
var genericPool = []string{
	"Hm, das klingt wirklich interessant. Kannst du mir ein bisschen mehr darüber erzählen?",
	"Ach so, jetzt wird mir klarer, was du meinst. Würdest du genauer beschreiben, worauf du anspielst?",
	"Ich höre dir aufmerksam zu. Was bedeutet das für dich im Moment?",
	"Das wirkt aufrichtig. Was bereitet dir dabei die grösste Freude?",
	"Ich merke, dass dir das wichtig ist. An was denkst du gerade?",
	"So etwas habe ich schon lange nicht gehört. Erzähl mir mehr darüber!",
	"Das klingt vertraut. Hast du positive Erfahrungen damit gemacht?",
	"Ich bin neugierig. Was genau möchtest du damit sagen?",
	"Das hat etwas Besonderes. Was kommt dir dabei in den Sinn?",
	"Ich spüre gerade eine Energie. Möchtest du das vertiefen?",
	"Interessant, wie du das formulierst. Was bedeutet es dir im Moment?",
	"Das klingt nahbar. Wie fühlt es sich für dich an?",
	"Mir fällt auf, dass du offen bist. Möchtest du mehr teilen?",
	"Das klingt nach einem besonderen Moment. Was reizt dich daran besonders?",
	"Ich kann mir vorstellen, wie das ist. Was möchtest du dazu noch sagen?",
	"Das wirkt sehr ehrlich. Erzähl mir bitte mehr darüber.",
	"So direkt mag ich es. Was kommt dir noch in den Sinn?",
	"Das klingt nach einem Gefühl, das wichtig ist. Wie fühlt es sich für dich an?",
	"Ich kann mich gut hineinversetzen. Wie erlebst du das im Alltag?",
	"Das wirkt lebendig. Was möchtest du dazu noch sagen?",
	"Spannend, wie du das ausdrückst. Hast du ein Beispiel für mich?",
	"Da steckt Tiefe drin. Was meinst du genau?",
	"Ich finde es schön, wie du das formulierst. Was bedeutet es dir jetzt gerade?",
	"Das macht mich neugierig. Was fühlst du im Moment?",
	"Da ist viel zu spüren. Was davon möchtest du teilen?",
	"Das klingt ehrlich. Wie geht es dir, wenn du das aussprichst?",
	"Ich lese da Sehnsucht heraus. Magst du sie näher beschreiben?",
	"Das ist ein spannender Gedanke. Was kommt dir dazu noch in den Sinn?",
	"Das wirkt warmherzig. Was steckt dahinter?",
	"Das ist mutig. Erzähl mir mehr darüber.",
	"Ich fühle, dass dir das wichtig ist. Möchtest du etwas tiefer eintauchen?",
	"Das klingt nach dir. Wie zeigt sich das in deinem Alltag?",
	"Ich mag deine Offenheit. Was beschäftigt dich gerade am meisten?",
	"Es wirkt, als wäre dir das ernst. Was meinst du genau?",
	"Das klingt nah. Wie fühlt es sich an, das zu sagen?",
	"Ich spüre da etwas Tiefes. Kannst du mir darüber mehr erzählen?",
	"Das klingt echt und unverstellt. Was möchtest du mir noch anvertrauen?",
	"Ich fühle mich verbunden mit dem, was du schreibst. Erzähl mir dazu mehr.",
	"Das berührt mich. Möchtest du mir mehr darüber erzählen?",
	"Ich bin ganz bei dir. Womit möchtest du weitermachen?",
	"Klingt gut. Was wäre dir als Nächstes wichtig?",
	"Danke für deine Offenheit. Was möchtest du jetzt als Schwerpunkt setzen?",
	"Ich höre zu. Welche Richtung möchtest du einschlagen?",
	"Alles klar. Was davon möchtest du zuerst angehen?",
	"Ich bin dabei. Womit fangen wir an?",
	"Gut zu wissen. Welche Frage soll ich dir als Erstes stellen?",
	"Verstanden. Was ist dir im Chat gerade am wichtigsten?",
}

var intentPools = map[intent.Intent][]string{
	intent.Compliment: {
		"Das liest sich schön. Was hat dich zuerst an mir angesprochen?",
		"Danke für die netten Worte. Was gefällt dir besonders an mir?",
		"Sehr charmant. Magst du mir noch etwas über dich erzählen?",
		"Danke für das Kompliment. Was gefällt dir an mir besonders?",
		"Danke dir. Was genau spricht dich an?",
	},
	intent.Question: {
		"Gute Frage. Was ist dir an der Antwort am wichtigsten?",
		"Ich überlege mit. In welche Richtung soll es gehen?",
		"Sag mir kurz, was dahinter steckt, dann gehe ich darauf ein.",
		"Spannende Frage. Was erwartest du dir davon?",
	},
	intent.Smalltalk: {
		"Was war dein kleines Highlight in letzter Zeit?",
		"Ich mag ehrlichen Smalltalk. Was macht dich neugierig an mir?",
		"Erzähl mir ein wenig mehr über dich, dann kann ich besser anknüpfen.",
		"Dann mal los. Was sollte ich als Erstes über dich wissen?",
	},
	intent.Sexual: {
		"Danke für deine Offenheit. Bleiben wir hier im Chat und schreiben respektvoll. Was reizt dich an Worten am meisten?",
		"Ich bleibe hier. Erzähl mir, was dich anspricht, dann greife ich es behutsam auf.",
		"Du klingst sehr direkt. Was reizt dich hier im Chat gerade am meisten?",
	},
	intent.Boundary: {
		"Ich bleibe hier im Chat. Schreib mir, was dir wichtig ist, dann knüpfe ich daran an.",
		"Hier ist für mich der richtige Ort. Was möchtest du mir über dich erzählen?",
		"Ich wechsle nicht. Erzähl mir lieber, was dich gerade beschäftigt.",
		"Hier im Chat fühle ich mich wohl. Worum geht es dir gerade am meisten?",
	},
	intent.Aggressive: {
		"Ich lese dich, bleibe aber respektvoll. Sag mir, worum es dir genau geht.",
		"Ich nehme dich ernst. Was ist dein Kernanliegen?",
		"Lass uns respektvoll bleiben. Was genau stört dich?",
	},
	intent.Repetition: {
		"Ich knüpfe an. Was ist dir jetzt am wichtigsten?",
		"Das Thema hatten wir schon kurz. Was fehlt dir noch?",
		"Darüber haben wir schon gesprochen. Was ist seitdem neu für dich?",
	},
	Sadness: {
		"Das klingt schwer. Was würde dir gerade gut tun?",
		"Ich nehme dich ernst. Was brauchst du im Moment am meisten?",
		"Verstanden. Wobei wünschst du dir hier im Chat Unterstützung?",
	},
}

// DefaultPack returns a copy of the built-in pools.
func DefaultPack() Pack {
	p := Pack{
		Generic: append([]string(nil), genericPool...),
		Intents: make(map[intent.Intent][]string, len(intentPools)),
	}
	for k, v := range intentPools {
		p.Intents[k] = append([]string(nil), v...)
	}
	return p
}
