package watchimport

// WizardEvent is a message that may advance the wizard to its next step.
type WizardEvent string

const (
	EventFileParsed        WizardEvent = "fileParsed"
	EventResolveRequested  WizardEvent = "resolveRequested"
	EventProceedToImport   WizardEvent = "proceedToImport"
	EventAmbiguousResolved WizardEvent = "ambiguousResolved"
	EventImportFinished    WizardEvent = "importFinished"
	EventRestart           WizardEvent = "restart"
)

// Transition returns the step reached by applying event to current, and
// whether the pair is valid. Invalid pairs leave the wizard where it is.
// GoToStep is handled separately as the unconditional escape hatch.
func Transition(current WizardStep, event WizardEvent) (WizardStep, bool) {
	switch current {
	case StepSelectFile:
		if event == EventFileParsed {
			return StepMatchingPreview, true
		}
	case StepMatchingPreview:
		switch event {
		case EventResolveRequested:
			return StepResolveAmbiguous, true
		case EventProceedToImport:
			return StepImporting, true
		}
	case StepResolveAmbiguous:
		if event == EventAmbiguousResolved {
			return StepMatchingPreview, true
		}
	case StepImporting:
		if event == EventImportFinished {
			return StepComplete, true
		}
	case StepComplete:
		if event == EventRestart {
			return StepSelectFile, true
		}
	}
	return current, false
}
