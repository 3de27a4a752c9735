package extraction

// receiptPrompt describes the JSON shape expected back from the model.
const receiptPrompt = `Lee la boleta o factura peruana proporcionada y devuelve SOLO un objeto JSON UTF-8 con esta estructura:
{
  "cliente": {
    "fecha": "dd/mm/yyyy (vacío si no aparece)",
    "cliente": "nombre del cliente",
    "dni": "DNI de 8 dígitos (vacío si no aparece)",
    "ruc": "RUC de 11 dígitos (vacío si no aparece)"
  },
  "productos": [
    {
      "cantidad": número,
      "unidad_medida": "KILOGRAMO para menestras y granos, CAJA, BOLSA o UNIDAD para el resto",
      "descripcion": "descripción del producto",
      "precio_base": precio unitario sin IGV o 0 si no aparece,
      "igv": 1 si el producto está gravado con IGV, 0 si no (las menestras peruanas no pagan IGV),
      "precio_total": total pagado por la línea
    }
  ],
  "total": total a pagar
}
Usa los valores exactos del documento. Los números van sin símbolo de moneda. Los campos de texto ausentes van como "" y los numéricos como 0. Escribe los textos en mayúsculas.`

// textPrompt wraps OCR text for models that receive no image.
func textPrompt(ocrText string) string {
	return receiptPrompt + "\n\nTexto reconocido del documento:\n---\n" + ocrText + "\n---"
}
