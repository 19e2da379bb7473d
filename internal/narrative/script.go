package narrative

import (
	"github.com/naicoco/guestbook/internal/domain"
)

// Speaker avatars for the two cat narrators.
const (
	SpeakerBlackCat = "🐈"
	SpeakerOrange   = "🍊"
)

// ChatMessage is one line of the narrative, attributed to a speaker.
type ChatMessage struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text,omitempty"`
	Poster  string `json:"poster,omitempty"`
}

// Inputs tells the frontend which controls are active for the current stage.
type Inputs struct {
	Advance bool `json:"advance"`
	Share   bool `json:"share"`
	Submit  bool `json:"submit"`
	Reset   bool `json:"reset"`
}

// View is the rendered narrative for one session state. It is built purely
// from the session and the last outcome; rendering never mutates state.
type View struct {
	Stage    string        `json:"stage"`
	Messages []ChatMessage `json:"messages"`
	Inputs   Inputs        `json:"inputs"`
	Draft    domain.Draft  `json:"draft"`
	Note     string        `json:"note,omitempty"`
}

// Render builds the visitor-facing view for a session, appending an outcome
// line where one applies. Bot-trap outcomes render exactly like the unchanged
// state, with no note at all.
func Render(sess *domain.GuestSession, outcome Outcome) View {
	v := View{
		Stage: sess.Stage.String(),
		Draft: sess.Draft,
		Note:  outcomeNote(outcome),
	}

	v.Messages = append(v.Messages,
		ChatMessage{Speaker: SpeakerBlackCat, Text: "你看見我了嗎？"},
		ChatMessage{Speaker: SpeakerBlackCat, Text: "我是被凝視的「牠」，也是凝視著你的「牠」。"},
		ChatMessage{Speaker: SpeakerBlackCat, Poster: "poster_vertical.jpg"},
		ChatMessage{Speaker: SpeakerBlackCat, Text: "naicoco 用畫筆記下了這個瞬間。"},
		ChatMessage{Speaker: SpeakerBlackCat, Text: "在這個空間裡，我們是怎麼互相觀看的？"},
	)

	if sess.Stage >= domain.StageExchange {
		v.Messages = append(v.Messages,
			ChatMessage{Speaker: SpeakerOrange, Text: "他眼中有我，我眼中有橘子，那你眼中看到了什麼？"},
			ChatMessage{Speaker: SpeakerOrange, Poster: "poster_horizontal.jpg"},
			ChatMessage{Speaker: SpeakerOrange, Text: "留下一句話給 naicoco 吧。"},
			ChatMessage{Speaker: SpeakerOrange, Text: "告訴她，在你眼中的這場展覽，是什麼樣子的？"},
		)
	}

	if sess.Stage >= domain.StageReflect {
		v.Messages = append(v.Messages,
			ChatMessage{Speaker: SpeakerBlackCat, Text: "謝謝你的這句話，我們都聽見了。"},
			ChatMessage{Speaker: SpeakerBlackCat, Text: "還想多說一點嗎？補上第二段，或直接送出。"},
		)
	}

	switch sess.Stage {
	case domain.StageGaze:
		v.Inputs.Advance = true
	case domain.StageExchange:
		v.Inputs.Share = true
		v.Inputs.Reset = true
	case domain.StageReflect:
		v.Inputs.Submit = true
		v.Inputs.Reset = true
	}

	return v
}

// outcomeNote maps an outcome to its in-narrative line. Every failure path
// gets a calm, story-consistent message, never a technical detail.
func outcomeNote(outcome Outcome) string {
	switch outcome {
	case OutcomeDelivered:
		return "你的話已經飛向 naicoco 了，謝謝你來看展。"
	case OutcomeSavedLocally:
		return "外面的風有點大，訊息先被我們收進小盒子裡了，naicoco 一定會讀到的。"
	case OutcomeMisconfigured:
		return "好像哪裡出了點小狀況，請稍後再試一次。"
	case OutcomeCooldown:
		return "慢慢來，我們還在消化上一句話，稍等一下再送。"
	case OutcomeDuplicate:
		return "這句話我們已經好好收下了，不用再送一次。"
	case OutcomeReset:
		return "好的，我們從頭再看一次。"
	default:
		return ""
	}
}
