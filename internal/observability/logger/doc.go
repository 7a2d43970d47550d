// Package logger expone un logger Zap de proceso con scoping por request.
//
// Init se llama una sola vez desde cmd/codeflow. Los middlewares HTTP guardan en el
// contexto un logger con request_id/method/path y los services lo recuperan con From(ctx):
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.Exchange"))
//	log.Info("token issued", logger.ClientID(clientID), logger.Subject(sub))
//
// Nunca loguear codes, tokens, states ni secrets en claro: usar logger.Fingerprint.
package logger
