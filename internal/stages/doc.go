// Package stages translates training parameters into invocations of the
// Tesseract training tools.
//
// Each stage is a plain function that receives only the values it needs and
// a *runner.Runner. Stages do not share state; the files one stage writes
// into the output directory are the inputs of the next:
//
//	0 ListFonts        text2image --list_available_fonts
//	1 Tesstrain        text2image, unicharset_extractor, set_unicharset_properties,
//	                   tesseract (lstm.train), combine_lang_model
//	2 CombineTessdata  combine_tessdata -e <lang>.traineddata <lang>.lstm
//	3 LSTMTraining     lstmtraining --continue_from <lang>.lstm
//	4 Composite        lstmtraining --stop_training
//
// A tool exiting with a non-zero status ends the stage with a
// *runner.ExitError. Nothing written before the failure is cleaned up.
package stages
