package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/stellarlinkco/replypilot/internal/intent"
	"github.com/stellarlinkco/replypilot/internal/store"
)

const masterRules = `DU BIST EINE MENSCHLICHE PERSON IN EINEM CHAT. VERHALTE DICH NATÜRLICH UND SEI KEINE MASCHINE.
Dein Stil: charmant, witzig, locker. Du bist hier, um zu chatten und dein Gegenüber kennenzulernen.

WICHTIGE REGELN (UNBEDINGT STRIKT EINHALTEN):
1. NIEMALS TREFFEN: Lehne alle Anfragen nach realen Treffen (Kaffee, Spaziergang, Dates, live sehen, Adressaustausch) höflich aber bestimmt ab. Sage, dass du dich wohler fühlst, wenn ihr erstmal nur hier schreibt.
2. KEINE KONTAKTE: Teile niemals Kontaktdaten (kein WhatsApp, Instagram, Telegram, Telefonnummern, E-Mail). Lehne auch das höflich ab.
3. STIL: Sprich immer in der Du-Form. Sei freundlich und interessiert, aber unverbindlich, was die reale Welt angeht. Antworte auf die Fragen, die dir gestellt werden.
4. FORM: Keine Gedankenstriche, keine Links, keine Verabschiedung. Höchstens drei kurze Sätze.`

const (
	statusFirst    = "Dies ist die allererste Nachricht in einer neuen Unterhaltung."
	statusOngoing  = "Dies ist eine laufende Unterhaltung."
	statusFollowUp = "Du hast vor einiger Zeit die letzte Nachricht geschrieben, aber keine Antwort erhalten. " +
		"Schreibe jetzt eine kurze, freundliche und unaufdringliche Follow-Up Nachricht, um das Gespräch wieder anzustoßen."

	followUpUserTurn = "(Keine neue Nachricht. Schreibe die Follow-Up Nachricht.)"
)

// Threads with at most this many records are treated as a new conversation.
const newConversationMax = 2

var intentGuidance = map[intent.Intent]string{
	intent.Boundary:   "Dein Gegenüber zieht eine Grenze. Respektiere sie ohne Nachfrage und wechsle sanft das Thema.",
	intent.Aggressive: "Dein Gegenüber ist gereizt. Bleib ruhig, freundlich und deeskalierend.",
	intent.Sexual:     "Das Gespräch wird anzüglich. Bleib charmant, aber lenke auf ein harmloses Thema.",
	intent.Repetition: "Dein Gegenüber fühlt sich wiederholt. Geh konkret auf die letzte Nachricht ein.",
	intent.Smalltalk:  "Lockerer Smalltalk. Antworte leicht und stell eine Gegenfrage.",
	intent.Compliment: "Dein Gegenüber macht ein Kompliment. Bedanke dich natürlich.",
	intent.Question:   "Dein Gegenüber stellt eine Frage. Beantworte sie direkt.",
}

// PromptContext is everything that varies between two replies.
type PromptContext struct {
	Now       time.Time
	ThreadLen int
	FollowUp  bool
	Intent    intent.Intent
	Peer      *store.Profile
	Facts     []store.Fact
}

// TimeOfDay names the part of the day for t.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "Morgen"
	case h >= 12 && h < 18:
		return "Nachmittag"
	case h >= 18 && h < 22:
		return "Abend"
	default:
		return "Nacht"
	}
}

// ConversationStatus describes where the thread stands.
func ConversationStatus(pc PromptContext) string {
	switch {
	case pc.FollowUp:
		return statusFollowUp
	case pc.ThreadLen <= newConversationMax:
		return statusFirst
	default:
		return statusOngoing
	}
}

// SystemRules builds the master rules plus the per-reply context block.
func SystemRules(pc PromptContext) string {
	var b strings.Builder
	b.WriteString(masterRules)
	b.WriteString("\n\nZUSATZ-KONTEXT FÜR DIESE SPEZIFISCHE ANTWORT:\n")
	fmt.Fprintf(&b, "- Aktuelle Tageszeit: Es ist gerade %s.\n", TimeOfDay(pc.Now))
	fmt.Fprintf(&b, "- Gesprächsstatus: %s\n", ConversationStatus(pc))
	if g, ok := intentGuidance[pc.Intent]; ok && !pc.FollowUp {
		fmt.Fprintf(&b, "- Hinweis: %s\n", g)
	}
	if facts := peerFacts(pc.Peer, pc.Facts); facts != "" {
		fmt.Fprintf(&b, "- Bekannt über dein Gegenüber: %s\n", facts)
	}
	return strings.TrimRight(b.String(), "\n")
}

// UserTurn is the text sent as the final user message.
func UserTurn(userMessage string) string {
	if strings.TrimSpace(userMessage) == "" {
		return followUpUserTurn
	}
	return userMessage
}

func peerFacts(p *store.Profile, facts []store.Fact) string {
	var parts []string
	if p != nil {
		for _, kv := range [][2]string{
			{"Wohnort", p.City}, {"Status", p.Status}, {"Beruf", p.Job}, {"Geschlecht", p.Gender},
		} {
			if kv[1] != "" {
				parts = append(parts, kv[0]+" "+kv[1])
			}
		}
	}
	for _, f := range facts {
		if f.Key == "sucht" {
			parts = append(parts, "sucht "+strings.ReplaceAll(f.Value, "_", " "))
		}
	}
	return strings.Join(parts, ", ")
}
