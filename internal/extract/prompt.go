package extract

import (
	"fmt"

	"github.com/bluereef-labs/mpagent/internal/model"
)

// systemPrompt is shared by all extraction targets.
const systemPrompt = `Eres un analista experto en planes de manejo de Áreas Marinas Protegidas en español. Extraes información estructurada de fragmentos de texto de un plan de manejo.

Reglas:
- Responde ÚNICAMENTE con JSON válido, sin texto adicional ni bloques de código
- Extrae solo información presente en el texto proporcionado
- Mantén los acentos y caracteres especiales del español correctamente
- Si un dato no está disponible, usa "" (cadena vacía) o [] (lista vacía)
- No inventes zonas, objetivos ni referencias que no aparezcan en el texto`

const zonationPrompt = `A continuación tienes un fragmento de texto extraído de un Plan de Manejo de un Área Marina Protegida.
Extrae la información sobre las zonas del área protegida, incluyendo límites y regulaciones específicas asociadas a cada zona.

Instrucciones específicas:
1. Identifica todas las zonas mencionadas en el texto (pueden llamarse "zonas", "sectores", "áreas", etc.)
2. Para cada zona, extrae sus límites geográficos si se describen
3. Para cada zona, separa las actividades explícitamente permitidas y las explícitamente prohibidas
4. Incluye en "regulaciones" el texto literal de la regulación asociada a la zona

Presenta la respuesta ÚNICAMENTE en formato JSON con la siguiente estructura:
{
  "zonas": [
    {
      "nombre_zona": "...",
      "limites": "...",
      "actividades_permitidas": ["...", "..."],
      "actividades_prohibidas": ["...", "..."],
      "regulaciones": "..."
    }
  ]
}

Si no hay información sobre zonificación en este fragmento, devuelve:
{"zonas": []}

Texto del Plan de Manejo:
%s

JSON:`

const objectivesPrompt = `Extrae del siguiente fragmento los objetivos de conservación definidos explícitamente en el Plan de Manejo de un Área Marina Protegida.

Instrucciones específicas:
1. Busca secciones tituladas "Objetivos", "Objetivos de conservación", "Objetivos del área", etc.
2. Mantén la redacción original de cada objetivo
3. No incluyas metas operativas, indicadores o actividades (solo objetivos)
4. Para cada objetivo, evalúa cada criterio SMART con "alto", "medio" o "bajo":
   - especifico: describe clara y concretamente lo que se quiere lograr
   - medible: es posible cuantificar el progreso hacia su cumplimiento
   - alcanzable: es realista con los recursos disponibles
   - relevante: está alineado con las necesidades de conservación del área
   - con_plazo: establece un marco temporal claro
5. Indica en "temas" las palabras clave temáticas del objetivo (en minúsculas)
6. Añade una breve evaluación de viabilidad práctica

Presenta la respuesta ÚNICAMENTE en formato JSON:
{
  "objetivos_conservacion": [
    {
      "objetivo": "...",
      "SMART": {
        "especifico": "alto",
        "medible": "medio",
        "alcanzable": "bajo",
        "relevante": "alto",
        "con_plazo": "bajo"
      },
      "temas": ["...", "..."],
      "viabilidad": "..."
    }
  ]
}

Si no se encuentran objetivos explícitos en este fragmento, devuelve:
{"objetivos_conservacion": []}

Texto:
%s

JSON:`

const citationsPrompt = `Del fragmento proporcionado, extrae todas las referencias bibliográficas citadas en el Plan de Manejo de un Área Marina Protegida.

Instrucciones específicas:
1. Busca secciones tituladas "Referencias", "Bibliografía", "Literatura citada", etc.
2. Incluye cada referencia bibliográfica completa en "referencia_completa"
3. Separa autores, título, revista o fuente, y año de publicación
4. Indica en "temas_principales" los temas tratados por cada referencia (en minúsculas)
5. Mantén los acentos y caracteres especiales del español correctamente

Estructura los datos ÚNICAMENTE en formato JSON:
{
  "referencias_bibliograficas": [
    {
      "referencia_completa": "...",
      "autores": "...",
      "titulo": "...",
      "revista_o_fuente": "...",
      "ano_publicacion": 2005,
      "temas_principales": ["...", "..."]
    }
  ]
}

Si no hay referencias bibliográficas en este fragmento, devuelve:
{"referencias_bibliograficas": []}

Texto:
%s

JSON:`

// repairPrompt narrows a failed extraction to the specific violation. Used
// at most once per record by the validation layer.
const repairPrompt = `Tu extracción anterior de este fragmento no superó la validación.

Violación detectada: %s

Vuelve a extraer ÚNICAMENTE el registro afectado, corrigiendo la violación indicada. Usa exactamente la misma estructura JSON que en la solicitud original de tipo "%s". Si el dato realmente no aparece en el texto, devuelve la lista vacía correspondiente.

Texto del Plan de Manejo:
%s

JSON:`

// BuildPrompt renders the user prompt for a target and segment.
func BuildPrompt(target model.Target, seg model.Segment) (string, error) {
	switch target {
	case model.TargetZonation:
		return fmt.Sprintf(zonationPrompt, seg.Text), nil
	case model.TargetObjectives:
		return fmt.Sprintf(objectivesPrompt, seg.Text), nil
	case model.TargetCitations:
		return fmt.Sprintf(citationsPrompt, seg.Text), nil
	default:
		return "", fmt.Errorf("extract: unknown target %q", target)
	}
}

// BuildRepairPrompt renders the narrower re-extraction prompt for a record
// that failed validation.
func BuildRepairPrompt(target model.Target, seg model.Segment, violation string) string {
	return fmt.Sprintf(repairPrompt, violation, target, seg.Text)
}
