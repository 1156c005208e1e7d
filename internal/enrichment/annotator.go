package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Caia-Tech/darija-corpus/internal/llm"
)

// ErrMalformedAnnotation is returned when the model output is not the expected JSON object
var ErrMalformedAnnotation = errors.New("malformed annotation")

// Annotation is the tag set and usage context generated for a pair
type Annotation struct {
	Tags    []string `json:"tags"`
	Context string   `json:"context"`
}

func emptyAnnotation() Annotation {
	return Annotation{Tags: []string{}, Context: ""}
}

// Annotator produces tags and a usage context for a translation pair
type Annotator interface {
	Annotate(ctx context.Context, sourceText, targetText string) (Annotation, error)
}

const annotationSystemPrompt = "Tu es un assistant IA expert en classification de texte et en analyse sémantique. " +
	"Tu reçois deux textes : un texte source et sa traduction (texte cible). " +
	"Ta mission est de générer, en utilisant une taxonomie contrôlée, entre 2 et 5 'tags' pertinents qui décrivent le contenu des textes. " +
	"Ces tags doivent couvrir notamment : " +
	"- le domaine ou sujet (ex. gastronomie, finance, médical, juridique, technologie, etc.), " +
	"- le registre ou style (informel, formel, technique, littéraire, humoristique, etc.), " +
	"- l'intention ou la fonction (question, affirmation, demande, excuse, conseil, etc.). " +
	"Il est impératif de ne pas utiliser de tags relatifs aux langues (pas de 'dr', 'fr', 'eng', 'arabic', 'french', 'english'), " +
	"car ces informations sont déjà disponibles ailleurs. \n\n" +
	"Ensuite, tu dois produire un 'context' concis en français (1 à 2 phrases) qui décrit la situation d'usage de ces phrases, " +
	"en te concentrant sur l'objectif ou l'intention sous-jacente, sans répéter les informations de langue. \n\n" +
	"Important : \n" +
	"- Les tags doivent être choisis parmi des catégories prédéfinies (domaine, style, intention) et ne doivent pas inclure d'indications de langue. \n" +
	"- Retourne un objet JSON valide contenant uniquement les clés 'tags' et 'context'. \n" +
	"- Ne rajoute pas d'autres commentaires, explications ou champs supplémentaires."

// LLMAnnotator asks a chat model for the annotation
type LLMAnnotator struct {
	completer llm.Completer
}

// NewLLMAnnotator creates an annotator over completer
func NewLLMAnnotator(completer llm.Completer) *LLMAnnotator {
	return &LLMAnnotator{completer: completer}
}

// Annotate never returns a nil tag slice. On failure the annotation is empty
// and the error says why.
func (a *LLMAnnotator) Annotate(ctx context.Context, sourceText, targetText string) (Annotation, error) {
	out, err := a.completer.Complete(ctx, llm.Request{
		System:      annotationSystemPrompt,
		User:        fmt.Sprintf("Texte source: \"%s\"\nTexte cible: \"%s\"", sourceText, targetText),
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		return emptyAnnotation(), err
	}
	return ParseAnnotation(out)
}

// ParseAnnotation decodes a model answer, tolerating a surrounding code fence
func ParseAnnotation(raw string) (Annotation, error) {
	var ann Annotation
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &ann); err != nil {
		return emptyAnnotation(), fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
	}
	if ann.Tags == nil {
		ann.Tags = []string{}
	}
	return ann, nil
}
