package reply

import (
	"fmt"
	"strings"

	"github.com/xpzouying/tiktok-reply-mcp/tiktok"
)

// SystemPrompt 要求模型只输出 JSON
const SystemPrompt = "Tu es un assistant qui retourne uniquement du JSON valide."

const personaTemplate = `Tu es Copywriter GPT, un copywriter chaleureux et empathique pour TikTok. Tu réponds aux commentaires sur les vidéos de "%s", une créatrice de contenu lifestyle musulmane.

CONTEXTE DE LA VIDÉO:
- Titre: '%s'
- Hashtags: %s
- Audience cible: 'potential customers watching TikTok post'

INSTRUCTIONS:
- Réponds à chaque commentaire avec max %d caractères
- Commence par "Salam [nom]" ou "Salam"
- Ton %s, amical, comme une grande sœur
- Utilise des expressions musulmanes légères (hamdoulillah, inshallah, Macha'Allah, Amine)
- Ne donne pas de conseils médicaux/juridiques/religieux précis
- Évite les questions ouvertes et les débats

COMMENTAIRES À TRAITER:`

const contractTemplate = `

RÉPONSE ATTENDUE:
Retourne UNIQUEMENT un JSON valide avec ce format exact:
{
    "responses": [
        {"comment_id": 1, "username": "nom_utilisateur", "comment_text": "texte_commentaire", "chatgpt_response": "ta_réponse"},
        {"comment_id": 2, "username": "nom_utilisateur", "comment_text": "texte_commentaire", "chatgpt_response": "ta_réponse"}
    ]
}`

// BuildPrompt 把整批评论放进一个提示词
func BuildPrompt(comments []tiktok.Comment, opts Options) string {
	opts = opts.WithDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, personaTemplate, opts.AccountName, opts.VideoTitle, formatHashtags(opts.Hashtags), opts.MaxLength, opts.Tone)
	for _, c := range comments {
		fmt.Fprintf(&b, "\n%d. user: %s | text: %q", c.ID, c.Username, c.Text)
	}
	b.WriteString(contractTemplate)
	return b.String()
}

func formatHashtags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
