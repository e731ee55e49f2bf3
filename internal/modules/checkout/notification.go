package checkout

const (
	MessageAddedToCart  = "¡Añadido al carrito!"
	MessageOrderSuccess = "¡Pedido recibido! Recibirás una confirmación por WhatsApp."
	MessageOrderFailure = "Hubo un problema al confirmar el pedido."
)
