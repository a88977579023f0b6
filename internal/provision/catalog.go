package provision

import "github.com/book-expert/speech-service/internal/core"

// piperVoicesBaseURL is the root of the published voice-model tree.
const piperVoicesBaseURL = "https://huggingface.co/rhasspy/piper-voices/resolve/main"

// DefaultCatalog returns the static catalog of synthesis voices the service
// provisions. Names follow the <lang>_<REGION>-<voice>-<quality> convention
// the provider and language derivations rely on.
func DefaultCatalog() []core.VoiceModel {
	return []core.VoiceModel{
		voiceModel("en_US-lessac-medium", "en/en_US/lessac/medium"),
		voiceModel("en_US-amy-medium", "en/en_US/amy/medium"),
		voiceModel("en_US-ryan-medium", "en/en_US/ryan/medium"),
		voiceModel("en_GB-alan-medium", "en/en_GB/alan/medium"),
		voiceModel("de_DE-thorsten-medium", "de/de_DE/thorsten/medium"),
		voiceModel("fr_FR-siwis-medium", "fr/fr_FR/siwis/medium"),
		voiceModel("es_ES-davefx-medium", "es/es_ES/davefx/medium"),
		voiceModel("it_IT-riccardo-x_low", "it/it_IT/riccardo/x_low"),
		voiceModel("ru_RU-irina-medium", "ru/ru_RU/irina/medium"),
		voiceModel("pt_BR-faber-medium", "pt/pt_BR/faber/medium"),
	}
}

func voiceModel(name, treePath string) core.VoiceModel {
	onnxURL := piperVoicesBaseURL + "/" + treePath + "/" + name + ".onnx"

	return core.VoiceModel{
		Name:    name,
		OnnxURL: onnxURL,
		JSONURL: onnxURL + ".json",
	}
}
