package polysemy

import "github.com/MrWong99/cmiique/pkg/lang"

// Builtin returns the table shipped with the service. It covers "Hant", whose
// everyday use as a greeting coexists with its literal meanings of land,
// place and direction.
func Builtin() Table {
	return Table{Words: []Word{
		{
			Word:    "Hant",
			Default: "greeting",
			Senses: []Sense{
				{
					ID: "greeting",
					Keywords: map[lang.Language][]string{
						lang.Spanish: {"hola", "saludo", "saludar", "buenos dias", "buenas tardes", "bienvenido"},
						lang.English: {"hello", "greeting", "greet", "good morning", "welcome"},
					},
					Translations: map[lang.Language]string{
						lang.Spanish: "Hola",
						lang.English: "Hello",
					},
				},
				{
					ID: "land",
					Keywords: map[lang.Language][]string{
						lang.Spanish: {"tierra", "suelo", "terreno", "arena", "desierto", "territorio"},
						lang.English: {"land", "earth", "soil", "ground", "sand", "desert", "territory"},
					},
					Translations: map[lang.Language]string{
						lang.Spanish: "Tierra",
						lang.English: "Land",
					},
				},
				{
					ID: "location",
					Keywords: map[lang.Language][]string{
						lang.Spanish: {"lugar", "donde", "sitio", "aqui", "alli", "pueblo"},
						lang.English: {"place", "where", "site", "here", "there", "village"},
					},
					Translations: map[lang.Language]string{
						lang.Spanish: "Lugar",
						lang.English: "Place",
					},
				},
				{
					ID: "navigation",
					Keywords: map[lang.Language][]string{
						lang.Spanish: {"abajo", "hacia", "rumbo", "direccion", "camino", "bajar"},
						lang.English: {"down", "toward", "towards", "direction", "path", "below"},
					},
					Translations: map[lang.Language]string{
						lang.Spanish: "Abajo",
						lang.English: "Down",
					},
				},
			},
		},
		{
			Word:    "Iti",
			Default: "location",
			Senses: []Sense{
				{
					ID: "location",
					Keywords: map[lang.Language][]string{
						lang.Spanish: {"encima", "sobre", "arriba", "mesa"},
						lang.English: {"on top", "upon", "above", "table"},
					},
					Translations: map[lang.Language]string{
						lang.Spanish: "Encima",
						lang.English: "On top",
					},
				},
				{
					ID: "body-part",
					Keywords: map[lang.Language][]string{
						lang.Spanish: {"cuerpo", "espalda", "duele", "dolor", "hombro"},
						lang.English: {"body", "back", "hurts", "pain", "shoulder"},
					},
					Translations: map[lang.Language]string{
						lang.Spanish: "Espalda",
						lang.English: "Back",
					},
				},
			},
		},
	}}
}
